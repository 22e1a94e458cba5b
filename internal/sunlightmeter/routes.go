package sunlightmeter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ztkent/lux-meter/internal/tools"
)

// Routes mounts the dashboard, the JSON API and the service identification route.
// Dashboard routes only answer requests from the local network.
func (m *SLMeter) Routes(r chi.Router) {
	// Sunlight Meter Dashboard Controls
	r.Group(func(r chi.Router) {
		r.Use(tools.CheckInNetwork)
		r.Get("/", m.ServeDashboard())
		r.Handle("/static/*", m.ServeStatic())
		r.Route("/sunlightmeter", func(r chi.Router) {
			r.Get("/start", m.Start())
			r.Get("/stop", m.Stop())
			r.Get("/current-conditions", m.CurrentConditions())
			r.Get("/export", m.ServeResultsDB())
			r.Post("/graph", m.ServeResultsGraph())
			r.Get("/controls", m.ServeSunlightControls())
			r.Get("/status", m.ServeSensorStatus())
			r.Post("/results", m.ServeResultsTab())
			r.Post("/settings", m.Settings())
			r.Get("/clear", m.Clear())
		})
	})

	// Sunlight Meter API, these serve a JSON response
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/start", m.Start())
		r.Get("/stop", m.Stop())
		r.Get("/current-conditions", m.CurrentConditions())
		r.Get("/export", m.ServeResultsDB())
		r.Get("/settings", m.Settings())
		r.Post("/settings", m.Settings())
	})

	// Route for service identification
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		response := struct {
			ServiceName string `json:"service_name"`
			Pid         int    `json:"pid"`
		}{
			ServiceName: "Sunlight Meter",
			Pid:         m.Pid,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	})
}
