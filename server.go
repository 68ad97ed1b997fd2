package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bme280server/bme280"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// sensorInfo is the part of *bme280.Dev the HTTP handlers need.
type sensorInfo interface {
	Calibration() bme280.Calibration
	ReadStatus() (bme280.Status, error)
}

type statusResponse struct {
	Measuring   bool `json:"measuring"`
	NVMUpdating bool `json:"nvm_updating"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func newRouter(store *readingStore, sensor sensorInfo) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		reading, ok := store.Get()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, reading)
	}).Methods(http.MethodGet)

	r.HandleFunc("/calibration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sensor.Calibration())
	}).Methods(http.MethodGet)

	r.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		s, err := sensor.ReadStatus()
		if err != nil {
			log.Printf("status read error: %v", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, statusResponse{Measuring: s.Measuring, NVMUpdating: s.NVMUpdating})
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(w, r, store)
	})
	return r
}

// serveWS pushes every new reading to the client until it goes away.
func serveWS(w http.ResponseWriter, r *http.Request, store *readingStore) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	readings, unsubscribe := store.Subscribe()
	defer unsubscribe()

	// The client never sends anything; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
		}
	}()

	if reading, ok := store.Get(); ok {
		if err := conn.WriteJSON(reading); err != nil {
			return
		}
	}
	for {
		select {
		case <-closed:
			return
		case reading := <-readings:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(reading); err != nil {
				log.Printf("websocket write error: %v", err)
				return
			}
		}
	}
}
