package gtfsexplorer

import (
	"errors"
	"log"
	"net/http"

	"github.com/theoremus-urban-solutions/gtfs-explorer/formatter"
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		var details map[string]any
		if reqErr.Param != "" {
			details = map[string]any{"param": reqErr.Param}
		}
		formatter.WriteError(w, http.StatusBadRequest, reqErr.Msg, details)
		return
	}
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	formatter.WriteError(w, http.StatusInternalServerError, "internal error", nil)
}

func writeNotFound(w http.ResponseWriter, what string, details map[string]any) {
	formatter.WriteError(w, http.StatusNotFound, what+" not found", details)
}
