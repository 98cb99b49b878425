// Package ws implements the lifecycle WebSocket stream.
//
// Hub manages a set of connected clients and pushes the current submission
// lifecycle to all of them: once on connect, on every orchestrator state
// transition (via Hub.Notify registered as an observer), and on a periodic
// tick so late joiners and lossy links converge.
//
// Message format sent to clients:
//
//	{
//	  "event": "lifecycle",
//	  "data":  { /* same schema as GET /api/v1/lifecycle */ }
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream by
// the server.
package ws
