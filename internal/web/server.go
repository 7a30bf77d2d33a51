package web

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"hapticd/internal/timedoutput"
)

const enableAttr = "enable"

// maxBody bounds attribute writes; sysfs stores are a page at most.
const maxBody = 4096

type devicesResponse struct {
	Devices []string `json:"devices"`
}

// Handler serves the timed-output attribute surface plus status, state
// stream, about and logs.
func Handler(reg *timedoutput.Registry, status *Status, states *StateBroadcaster, logs *LogBuffer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default()}))
	r.Use(middleware.Recoverer)

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		render.JSON(w, r, status.Snapshot(time.Now().UTC()))
	})
	r.Get("/ws/state", StateStreamHandler(states))
	r.Get("/api/about", AboutHandler())
	if logs != nil {
		r.Get("/api/logs", logs.ServeHTTP)
	}

	r.Route("/api/timed_output", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, devicesResponse{Devices: reg.Names()})
		})
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/enable", func(w http.ResponseWriter, r *http.Request) {
				dev, ok := lookup(w, r, reg)
				if !ok {
					return
				}
				writeValue(w, r, strconv.Itoa(dev.Remaining()))
			})
			enable := func(w http.ResponseWriter, r *http.Request) {
				dev, ok := lookup(w, r, reg)
				if !ok {
					return
				}
				body, ok := readBody(w, r)
				if !ok {
					return
				}
				v, err := strconv.ParseInt(strings.TrimSpace(body), 10, 32)
				if err != nil {
					render.Status(r, http.StatusBadRequest)
					render.PlainText(w, r, "command must be a 32-bit integer\n")
					return
				}
				writeValue(w, r, strconv.Itoa(dev.Enable(int32(v))))
			}
			r.Put("/enable", enable)
			r.Post("/enable", enable)

			r.Get("/{attr}", func(w http.ResponseWriter, r *http.Request) {
				attr, ok := attribute(w, r, reg)
				if !ok {
					return
				}
				writeText(w, r, attr.Show())
			})
			store := func(w http.ResponseWriter, r *http.Request) {
				attr, ok := attribute(w, r, reg)
				if !ok {
					return
				}
				body, ok := readBody(w, r)
				if !ok {
					return
				}
				if attr.Store != nil {
					attr.Store(body)
				}
				writeText(w, r, attr.Show())
			}
			r.Put("/{attr}", store)
			r.Post("/{attr}", store)
		})
	})

	return r
}

func lookup(w http.ResponseWriter, r *http.Request, reg *timedoutput.Registry) (timedoutput.Device, bool) {
	dev, ok := reg.Lookup(chi.URLParam(r, "name"))
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.PlainText(w, r, "no such device\n")
		return nil, false
	}
	return dev, true
}

func attribute(w http.ResponseWriter, r *http.Request, reg *timedoutput.Registry) (timedoutput.Attribute, bool) {
	attr, err := reg.Attribute(chi.URLParam(r, "name"), chi.URLParam(r, "attr"))
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.PlainText(w, r, err.Error()+"\n")
		return timedoutput.Attribute{}, false
	}
	return attr, true
}

func readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.PlainText(w, r, "body too large\n")
		return "", false
	}
	return string(b), true
}

func writeValue(w http.ResponseWriter, r *http.Request, v string) {
	writeText(w, r, v+"\n")
}

func writeText(w http.ResponseWriter, r *http.Request, s string) {
	w.Header().Set("Cache-Control", "no-store")
	render.PlainText(w, r, s)
}

func Serve(ctx context.Context, listenAddr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
