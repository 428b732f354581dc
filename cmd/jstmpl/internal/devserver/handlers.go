package devserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/gorilla/websocket"
)

const scriptContentType = "application/javascript; charset=utf-8"

var _ render.Render = script(nil)

// script renders a JavaScript body.
type script []byte

// Render writes the script to w
func (s script) Render(w http.ResponseWriter) error {
	s.WriteContentType(w)
	_, err := w.Write(s)
	return err
}

// WriteContentType writes a JavaScript content type if none is set
func (s script) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{scriptContentType}
	}
}

const liveScript = `(function(){` +
	`var proto=location.protocol==="https:"?"wss:":"ws:";` +
	`function connect(){` +
	`var ws=new WebSocket(proto+"//"+location.host+"` + SocketPath + `");` +
	`ws.onmessage=function(ev){var m=JSON.parse(ev.data);` +
	`if(m.type==="RELOAD"){location.reload();}` +
	`else if(m.type==="ERROR"){console.error("[jstmpl]\n"+m.errors.join("\n"));}};` +
	`ws.onclose=function(){setTimeout(connect,1000);};` +
	`}connect();})();`

func (s *Server) serveBundle(c *gin.Context) {
	s.mu.RLock()
	body := s.bundle
	s.mu.RUnlock()

	c.Header("Cache-Control", "no-store")
	if body == nil {
		c.Render(http.StatusServiceUnavailable, script("console.error(\"[jstmpl] no successful build yet\");"))
		return
	}
	c.Render(http.StatusOK, script(body))
}

func (s *Server) serveLiveScript(c *gin.Context) {
	c.Render(http.StatusOK, script(liveScript))
}

// Status is the JSON body of the status endpoint.
type Status struct {
	OK      bool     `json:"ok"`
	Units   int      `json:"units"`
	Version int      `json:"version"`
	Errors  []string `json:"errors,omitempty"`
}

func (s *Server) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		OK:      len(s.errs) == 0 && s.bundle != nil,
		Units:   s.units,
		Version: s.version,
		Errors:  s.errs,
	}
}

func (s *Server) serveStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	// Register client
	s.wsMutex.Lock()
	s.wsClients[conn] = true
	// A page opened while the build is broken hears about it right away.
	if st := s.status(); len(st.Errors) > 0 {
		conn.WriteJSON(map[string]any{"type": "ERROR", "errors": st.Errors})
	}
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	// Handle messages
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch msg["type"] {
		case "HELLO":
			s.wsMutex.Lock()
			conn.WriteJSON(map[string]any{"type": "ACK", "version": s.status().Version})
			s.wsMutex.Unlock()
		default:
			log.Printf("Unknown WebSocket message type: %v", msg["type"])
		}
	}
}

func (s *Server) notifyClients(msgType string, data map[string]any) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	message := map[string]any{
		"type": strings.ToUpper(msgType),
	}
	for k, v := range data {
		message[k] = v
	}

	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			log.Printf("Failed to send message to client: %v", err)
		}
	}
}

// clientCount returns the number of connected pages.
func (s *Server) clientCount() int {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	return len(s.wsClients)
}

func (s *Server) closeClients() {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	for client := range s.wsClients {
		client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.Close()
	}
}
