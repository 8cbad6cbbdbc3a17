// Package log provides structured protocol capture for RTA connections.
//
// Protocol capture is separate from operational logging (slog). It records a
// complete, machine-readable trace of what crossed the websocket and how the
// client reacted, for debugging and offline analysis.
//
// # Basic Usage
//
//	// Development: print events through slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: append CBOR records to a file
//	fl, _ := log.NewFileLogger("/var/log/rta/monitor.rlog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: decoded RTA frames (MessageEvent)
//   - Service: connection and subscription state changes (StateChangeEvent)
//
// Websocket control frames and errors have dedicated event types.
//
// # File Format
//
// Log files are a stream of CBOR records with integer keys, using the .rlog
// extension. The rta-log tool views, filters and exports them.
package log
