// Package logx configures the add-on's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional in-game chat sink (min-level + rate limiting), so warnings
//     surface in the chat window being watched during play
//
// The chat sink is synchronous and drop-on-throttle: log calls can happen
// on the client's render/hook threads, so nothing here queues or blocks.
package logx
