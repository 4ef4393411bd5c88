package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goinsight/adapters/excel"
	"goinsight/domain/insight"
	"goinsight/internal/api"
	"goinsight/internal/errors"
	"goinsight/internal/narrative"
)

type metricLink struct {
	ID       string
	Name     string
	Unit     string
	Noun     string
	Entities []string
}

type indexPage struct {
	Metrics []metricLink
}

type reportPage struct {
	Result   insight.NarrativeResult
	Body     template.HTML
	Query    template.URL
	Entities []string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	ds, err := a.source.Dataset(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	page := indexPage{}
	for _, m := range a.catalog.Metrics {
		page.Metrics = append(page.Metrics, metricLink{
			ID:       m.ID,
			Name:     m.Name,
			Unit:     m.Unit,
			Noun:     m.GroupNoun(),
			Entities: ds.Groups(m.GroupColumn),
		})
	}
	a.renderTemplate(w, "index.html", page)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	ev, ok := a.run(w, r)
	if !ok {
		return
	}
	a.renderTemplate(w, "report.html", reportPage{
		Result:   ev.result,
		Body:     template.HTML(narrative.HTML(ev.result)),
		Query:    template.URL(r.URL.Query().Encode()),
		Entities: ev.dataset.Groups(ev.metric.GroupColumn),
	})
}

func (a *App) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	ev, ok := a.run(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(narrative.Markdown(ev.result)))
}

func (a *App) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	ev, ok := a.run(w, r)
	if !ok {
		return
	}
	result := ev.result
	var buf bytes.Buffer
	if err := excel.WriteResult(&buf, result); err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.MetricID+".xlsx"))
	_, _ = w.Write(buf.Bytes())
}

type evaluation struct {
	metric  insight.MetricConfig
	dataset insight.Dataset
	result  insight.NarrativeResult
}

// run evaluates the metric in the URL under the query-string filters
func (a *App) run(w http.ResponseWriter, r *http.Request) (evaluation, bool) {
	id := chi.URLParam(r, "metric")
	cfg, ok := a.catalog.Metric(id)
	if !ok {
		a.fail(w, errors.NotFound("metric "+id))
		return evaluation{}, false
	}
	ds, err := a.source.Dataset(r.Context())
	if err != nil {
		a.fail(w, err)
		return evaluation{}, false
	}
	return evaluation{
		metric:  cfg,
		dataset: ds,
		result:  a.engine.Run(ds, cfg, api.ParseFilters(r.URL.Query())),
	}, true
}

func (a *App) fail(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[UI] %v", err)
	}
	http.Error(w, err.Error(), status)
}
