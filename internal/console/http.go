package console

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// maxTextChunk bounds one /console/text response, like the firmware's 2 KB
// response buffer. Clients poll again from start+len for the rest.
const maxTextChunk = 2040

// TextResponse is the JSON body served to the web console poller
type TextResponse struct {
	Len   int    `json:"len"`
	Start uint64 `json:"start"`
	Text  string `json:"text"`
}

// TextSince returns the console text starting at start. If Start in the
// response is greater than the requested start, the caller missed bytes
// that were overwritten.
func (r *Ring) TextSince(start uint64) TextResponse {
	at, data := r.Since(start, maxTextChunk)
	return TextResponse{
		Len:   len(data),
		Start: at,
		Text:  string(data),
	}
}

// ServeHTTP answers GET ?start=N with a TextResponse. A missing or
// malformed start reads from the oldest retained byte.
func (r *Ring) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var start uint64
	if s := req.URL.Query().Get("start"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			start = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(r.TextSince(start))
}
