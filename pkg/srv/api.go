/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package srv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

const (
	ApiPrefix       = "/api"
	ProgressPath    = "/progress"
	FilesPath       = "/files"
	shutdownTimeout = 5 * time.Second
)

// ApiServer exposes the progress of a running receive session
type ApiServer struct {
	*mux.Router
	Address  string
	progress *Progress
}

func NewApiServer(address string, progress *Progress) *ApiServer {
	log.Debug("Initializing API server with address: %s", address)
	s := &ApiServer{
		Address:  address,
		progress: progress,
	}
	s.configureRouter()
	return s
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix(ApiPrefix).Subrouter()
	subRouter.HandleFunc(ProgressPath, s.handleProgress()).Methods("GET")
	subRouter.HandleFunc(FilesPath, s.handleFiles()).Methods("GET")
}

// Handler wraps the router with request logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		handlers.LoggingHandler(log.Writer(log.DebugLevel), s.Router))
}

// Run serves until ctx is cancelled
func (s *ApiServer) Run(ctx context.Context) error {
	log.Info("Starting API server: address: %s", s.Address)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Address,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling progress request")
		writeJSON(w, s.progress.Snapshot())
	}
}

func (s *ApiServer) handleFiles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling files request")
		files := s.progress.Files()
		if files == nil {
			files = []FileStatus{}
		}
		writeJSON(w, files)
	}
}
