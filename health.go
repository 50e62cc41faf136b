package gtfsexplorer

import (
	"net/http"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-explorer/formatter"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Feeds     int       `json:"feeds"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	formatter.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Feeds:     a.Store.Len(),
		Timestamp: time.Now().UTC(),
	})
}
