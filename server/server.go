package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ragpipe/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Engine is the slice of the pipeline the server needs.
type Engine interface {
	Ingest(ctx context.Context) (models.IngestReport, error)
	Answer(ctx context.Context, query string, k int) (string, []models.SearchResult, error)
	AnswerStream(ctx context.Context, query string, k int) (<-chan string, []models.SearchResult, error)
}

type Config struct {
	Addr string
	TopK int
}

type Server struct {
	config Config
	engine Engine
}

func New(config Config, engine Engine) *Server {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	return &Server{
		config: config,
		engine: engine,
	}
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type chunkResponse struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type queryResponse struct {
	Answer string          `json:"answer"`
	Chunks []chunkResponse `json:"chunks"`
}

type wsMessage struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	log.Printf("listening on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

// POST /query {"query": "...", "top_k": 5}
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.config.TopK
	}

	answer, results, err := s.engine.Answer(r.Context(), req.Query, req.TopK)
	if err != nil {
		log.Printf("query failed: %v", err)
		http.Error(w, "query failed", http.StatusBadGateway)
		return
	}

	resp := queryResponse{
		Answer: answer,
		Chunks: make([]chunkResponse, 0, len(results)),
	}
	for _, r := range results {
		resp.Chunks = append(resp.Chunks, chunkResponse{
			Text:   r.Chunk.Text,
			Source: r.Chunk.Source,
			Score:  r.Score,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// POST /ingest triggers a full ingestion run.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	report, err := s.engine.Ingest(r.Context())
	if err != nil {
		log.Printf("ingest failed: %v", err)
		http.Error(w, "ingest failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}
		if msg.Content == "" {
			s.sendMessage(conn, "error", "query is required")
			continue
		}

		stream, results, err := s.engine.AnswerStream(r.Context(), msg.Content, s.config.TopK)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			continue
		}

		for chunk := range stream {
			s.sendMessage(conn, "stream", chunk)
		}

		sources := make([]chunkResponse, 0, len(results))
		for _, res := range results {
			sources = append(sources, chunkResponse{
				Text:   res.Chunk.Text,
				Source: res.Chunk.Source,
				Score:  res.Score,
			})
		}
		if err := conn.WriteJSON(wsMessage{Type: "done", Data: sources}); err != nil {
			log.Printf("Error sending message: %v", err)
		}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := wsMessage{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
