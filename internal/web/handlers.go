package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/ops"
)

// channelHistoryLimit is the number of decisions shown on a channel page.
const channelHistoryLimit = 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	deps     ops.Deps
	renderer *Renderer
}

// HandleChannels handles GET /channels: every stored channel with its class.
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListChannels(r.Context(), h.deps)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "channels", ChannelsPageData{
		PageData: PageData{
			Title:   "Channels",
			Version: h.renderer.version,
			Nav:     "channels",
		},
		Result: result,
	})
}

// HandleChannel handles GET /channels/{id}: the snapshot window, a preview
// decision that is never pushed, and recent decisions for the channel.
func (h *Handlers) HandleChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("channel ID is required"))
		return
	}

	eval, err := ops.Evaluate(r.Context(), h.deps, ops.EvaluateInput{
		ChannelID: id,
		Mode:      r.URL.Query().Get("mode"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	history, err := ops.History(r.Context(), h.deps, ops.HistoryInput{
		ChannelID: id,
		Limit:     channelHistoryLimit,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"evaluation": eval,
			"history":    history.Items,
		})
		return
	}

	name := eval.Channel.Name
	if name == "" {
		name = eval.Channel.ID
	}
	h.renderer.renderPage(w, r, "channel", ChannelPageData{
		PageData: PageData{
			Title:   name,
			Version: h.renderer.version,
			Nav:     "channels",
		},
		Eval:    eval,
		Mode:    eval.Decision.Mode,
		Records: history.Items,
	})
}

// HandleHistory handles GET /history: recorded decisions, newest first.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.HistoryInput{
		RunID:     q.Get("run_id"),
		ChannelID: q.Get("channel_id"),
		PushOnly:  parseBoolParam(r, "push_only"),
		Limit:     parseIntParam(r, "limit", 0),
	}

	result, err := ops.History(r.Context(), h.deps, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "history",
		},
		Items:     result.Items,
		Limit:     result.Limit,
		RunID:     input.RunID,
		ChannelID: input.ChannelID,
		PushOnly:  input.PushOnly,
	})
}

// HandleReport handles GET /runs/latest and GET /runs/{runID}.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	result, err := ops.Report(r.Context(), h.deps, ops.ReportInput{RunID: runID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "report", ReportPageData{
		PageData: PageData{
			Title:   "Run " + result.RunID,
			Version: h.renderer.version,
			Nav:     "report",
		},
		RunID:        result.RunID,
		Records:      result.Records,
		RenderedHTML: renderMarkdown(result.Markdown),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
