package httpapi

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"github.com/daydream/camera-core/internal/api"
	"github.com/daydream/camera-core/internal/media"
)

// readAndRestoreBody reads r.Body fully and replaces it with a fresh
// reader over the same bytes, so a later handler can still consume the
// body after Authenticator.Verify already read it once for the HMAC
// check.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// NewMux builds the HTTP surface's route table: POST /daydreamcamera
// dispatches through the C7 Dispatcher, GET/DELETE /media/<path> serve
// the media store. statusPusher is optional (nil disables it): when
// set, it mounts the additive /debug/status websocket outside the
// HMAC-authenticated routes, matching its role as local debug tooling
// rather than an external interface.
func NewMux(auth *Authenticator, dispatcher *api.Dispatcher, mediaLister *media.Lister, statusPusher *StatusPusher) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/daydreamcamera", auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDispatch(w, r, dispatcher)
	})))

	mux.Handle("/media/", auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleMedia(w, r, mediaLister)
	})))

	if statusPusher != nil {
		mux.Handle("/debug/status", statusPusher)
	}

	return mux
}

func handleDispatch(w http.ResponseWriter, r *http.Request, dispatcher *api.Dispatcher) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	req, err := api.Decode(body)
	if err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	resp := dispatcher.Dispatch(req)
	out, err := resp.Encode()
	if err != nil {
		log.Println("httpapi: encode response error:", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(out); err != nil {
		// A client-initiated close during write terminates the handler
		// silently; nothing further to do here.
		return
	}
}
