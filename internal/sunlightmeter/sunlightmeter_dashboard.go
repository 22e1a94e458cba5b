package sunlightmeter

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/sirupsen/logrus"

	"github.com/ztkent/lux-meter/internal/tools"
)

// Reference lines drawn behind the lux series, dimmest first.
var lightLevels = []struct {
	Lux   int
	Title string
	Color string
}{
	{500, "Shade", "DarkGrey"},
	{1000, "Partial Shade", "WhiteSmoke"},
	{10000, "Partial Sun", "SkyBlue"},
	{25000, "Full Sun", "Yellow"},
}

// A minute whose average lux is above this counts as full sun.
const fullSunLux = 10000

// Serve the sqlite db for download
func (m *SLMeter) ServeResultsDB() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(m.opts.DBPath)))
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, m.opts.DBPath)
	}
}

// Serve the homepage
func (m *SLMeter) ServeDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileContent, err := templateFiles.ReadFile("html/dashboard.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write(fileContent)
	}
}

// ServeStatic serves the embedded stylesheet and other assets under /static/.
func (m *SLMeter) ServeStatic() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles())))
}

// Serve the controls for the sensor, start/stop/export/current-conditions/settings
func (m *SLMeter) ServeSunlightControls() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := parseTemplateFile("html/controls.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		err = tmpl.Execute(w, struct {
			Gains            []string
			IntegrationTimes []string
		}{gainNames, integrationTimeNames})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// Status of the sensor
func (m *SLMeter) ServeSensorStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := parseTemplateFile("html/status.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Setup the status response
		type Status struct {
			Connected       bool
			Enabled         bool
			JobID           string
			Gain            string
			IntegrationTime string
		}
		status := Status{Connected: m.Connected()}
		if status.Connected {
			status.JobID, status.Enabled = m.Running()
			settings := m.sensorSettings()
			status.Gain = settings.Gain
			status.IntegrationTime = settings.IntegrationTime
		}

		err = tmpl.Execute(w, status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

type luxPoint struct {
	Lux       float64
	CreatedAt time.Time
}

func (m *SLMeter) luxBetween(startDate, endDate string) ([]luxPoint, error) {
	rows, err := m.ResultsDB.Query("SELECT lux, created_at FROM sunlight WHERE created_at BETWEEN ? AND ? ORDER BY created_at", startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []luxPoint
	for rows.Next() {
		var p luxPoint
		if err := rows.Scan(&p.Lux, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Serve the results graph
func (m *SLMeter) ServeResultsGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get the date range for the graph from the request
		startDate, endDate := tools.ParseStartAndEndDate(r, m.opts.Location, m.now())

		points, err := m.luxBetween(startDate, endDate)
		if err != nil {
			logrus.Error(err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Create a new page and add the line chart to it
		page := components.NewPage()
		page.AddCharts(luxChart(points, m.opts.Location))

		// Render the graphs
		w.Header().Set("Content-Type", "text/html")
		if err := page.Render(w); err != nil {
			logrus.Errorf("Failed to render graph: %v", err)
			return
		}
		// Trigger an update for the results tab
		w.Write([]byte(`<div id='resultUpdateTrigger' hx-post='/sunlightmeter/results' hx-include='#dateRange' hx-target='#resultsContent' hx-trigger='load'></div>`))
		w.Write([]byte(`<script>document.title = "Sunlight Meter";</script>`))
	}
}

// luxChart draws the lux series over the reference light levels. The y axis
// is rounded up to the next multiple of 5000.
func luxChart(points []luxPoint, loc *time.Location) *charts.Line {
	luxValues := make([]opts.LineData, 0, len(points))
	timeValues := make([]string, 0, len(points))
	maxLux := 0
	for _, p := range points {
		if p.Lux > float64(maxLux) {
			maxLux = int(math.Ceil(p.Lux/5000) * 5000)
		}
		luxValues = append(luxValues, opts.LineData{Value: p.Lux})
		timeValues = append(timeValues, p.CreatedAt.In(loc).Format(tools.LayoutDB))
	}

	line := charts.NewLine()
	for _, level := range lightLevels {
		data := make([]opts.LineData, len(timeValues))
		for i := range data {
			data[i] = opts.LineData{Value: level.Lux}
		}
		line.AddSeries(level.Title, data, charts.WithLineChartOpts(opts.LineChart{
			Color: level.Color,
		}))
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:     types.ThemeChalk,
			PageTitle: "Sunlight Meter",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Lux",
			Min:  "0",
			Max:  fmt.Sprintf("%d", maxLux),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      true,
			Trigger:   "axis",
			TriggerOn: "mousemove",
			// The lux series is added after the reference levels.
			Formatter: fmt.Sprintf("{a%d}: {c%d}<br> Time: {b0}", len(lightLevels), len(lightLevels)),
		}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: true,
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Title: "Save as Image",
					Name:  "sunlight-meter",
				},
			},
		}),
	)
	line.SetXAxis(timeValues).AddSeries("Lux", luxValues)
	return line
}

// Update the info in the results tab
func (m *SLMeter) ServeResultsTab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := m.getCurrentConditions()
		if err != nil && err != sql.ErrNoRows {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		startDate, endDate := tools.ParseStartAndEndDate(r, m.opts.Location, m.now())
		conditions, err = m.getHistoricalConditions(conditions, startDate, endDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		tmpl, err := parseTemplateFile("html/results.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		type ConditionsForDisplay struct {
			JobID                 string
			Lux                   string
			FullSpectrum          string
			Visible               string
			Infrared              string
			DateRange             string
			RecordedHoursInRange  string
			FullSunlightInRange   string
			LightConditionInRange string
			AverageLuxInRange     string
			StartDate             string
			EndDate               string
		}
		err = tmpl.Execute(w, ConditionsForDisplay{
			JobID:                 conditions.JobID,
			Lux:                   fmt.Sprintf("%.4f", conditions.Lux),
			FullSpectrum:          fmt.Sprintf("%.4f", conditions.FullSpectrum),
			Visible:               fmt.Sprintf("%.4f", conditions.Visible),
			Infrared:              fmt.Sprintf("%.4f", conditions.Infrared),
			DateRange:             conditions.DateRange,
			RecordedHoursInRange:  fmt.Sprintf("%.4f", conditions.RecordedHoursInRange),
			FullSunlightInRange:   fmt.Sprintf("%.4f", conditions.FullSunlightInRange),
			LightConditionInRange: conditions.LightConditionInRange,
			AverageLuxInRange:     fmt.Sprintf("%.4f", conditions.AverageLuxInRange),
			StartDate:             startDate,
			EndDate:               endDate,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// Summarize the readings recorded between startDate and endDate
func (m *SLMeter) getHistoricalConditions(conditions Conditions, startDate string, endDate string) (Conditions, error) {
	if m.ResultsDB == nil {
		return conditions, nil
	}
	// Set the date range
	conditions.DateRange = fmt.Sprintf("%s - %s UTC", startDate, endDate)

	// Get the average lux for the date range
	row := m.ResultsDB.QueryRow(`
    SELECT
        COUNT(*),
        COALESCE(AVG(lux), 0),
        MIN(created_at),
        MAX(created_at)
    FROM sunlight
    WHERE created_at BETWEEN ? AND ?`, startDate, endDate)
	var count int
	var oldest, mostRecent sql.NullString
	err := row.Scan(&count, &conditions.AverageLuxInRange, &oldest, &mostRecent)
	if err != nil {
		return conditions, err
	}
	if count == 0 {
		conditions.LightConditionInRange = "No Data in Range"
		return conditions, nil
	}

	// Count the minutes where the average lux was full sun
	var fullSunMinutes int
	err = m.ResultsDB.QueryRow(`
    SELECT COUNT(*)
    FROM (
        SELECT AVG(lux) AS avg_lux
        FROM sunlight
        WHERE created_at BETWEEN ? AND ?
        GROUP BY strftime('%Y-%m-%d %H:%M', created_at)
    )
    WHERE avg_lux > ?`, startDate, endDate, fullSunLux).Scan(&fullSunMinutes)
	if err != nil {
		return conditions, err
	}
	conditions.FullSunlightInRange = float64(fullSunMinutes) / 60

	// Determine the light condition for the date range
	first, last, err := tools.StartAndEndDateToTime(oldest.String, mostRecent.String)
	if err != nil {
		return conditions, err
	}
	conditions.RecordedHoursInRange = last.Sub(first).Hours()
	conditions.LightConditionInRange = lightCondition(conditions.FullSunlightInRange, conditions.RecordedHoursInRange)
	return conditions, nil
}

func lightCondition(fullSunHours, recordedHours float64) string {
	if recordedHours <= 0 {
		return "Not Enough Data"
	}
	ratio := fullSunHours / recordedHours
	switch {
	case ratio > 0.5:
		return "Full Sun"
	case ratio > 0.25:
		return "Partial Sun"
	case ratio > 0.1:
		return "Partial Shade"
	default:
		return "Shade"
	}
}

// Used to clear a div with htmx
func (m *SLMeter) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
	}
}
