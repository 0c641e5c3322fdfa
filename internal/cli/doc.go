// Package cli implements the Radar command-line interface.
//
// Each Cobra command loads what it needs from internal/config and hands off
// to the package that does the work:
//
//	radar server           - Run the server (internal/server)
//	radar client           - Run a client (internal/client)
//	radar console [action] - Query a running server (internal/console)
//	radar watch            - Live dashboard (internal/dashboard)
//	radar init server|client - Write a main config
//	radar version          - Version and platform capabilities
//
// # Configuration lookup
//
// --config wins. Without it the commands look for ./radar-server.yml or
// ./radar-client.yml, then main.yml under the platform config directory,
// and fall back to the built-in defaults. RADAR_* environment variables
// override single keys, for example RADAR_LISTEN_PORT.
//
// # Shutdown
//
// server and client run until SIGINT or SIGTERM cancel their context through
// signalContext.
package cli
