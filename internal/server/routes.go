package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/BioHazard786/classcast/internal/metrics"
	"github.com/BioHazard786/classcast/internal/protocol"
	"github.com/BioHazard786/classcast/internal/signaling"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,

	// Allow all origins; CORS_ALLOW only applies to the HTTP routes.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Options struct {
	// StaticDir holds the browser clients.
	StaticDir string
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
}

// New wires up all HTTP routes and middleware.
func New(hub *signaling.Hub, m *metrics.Metrics, log *slog.Logger, opts Options) http.Handler {
	api := &API{Hub: hub, Log: log, StaticDir: opts.StaticDir}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /create-conference", api.CreateConference)
	mux.HandleFunc("GET /join-conference", api.JoinConference)
	mux.HandleFunc("GET /conference/{confId}", api.ConferencePage)
	mux.HandleFunc("GET /health", api.Health)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /ws", ServeWs(hub, log))
	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// The client query parameter picks the codec: "cli" for msgpack, anything
// else for JSON.
func ServeWs(hub *signaling.Hub, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientType := r.URL.Query().Get("client")
		if clientType != protocol.ClientCLI {
			clientType = protocol.ClientWeb
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}

		client := signaling.NewClient(hub, conn, clientType)
		if !hub.Attach(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		// Start the client's read and write pumps in separate goroutines
		// These methods will handle the client's lifecycle
		go client.WritePump()
		go client.ReadPump()
	}
}
