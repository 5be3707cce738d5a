package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/matsen/cslcite/internal/citation"
	"github.com/matsen/cslcite/internal/mapper"
	"github.com/matsen/cslcite/internal/reference"
	"github.com/matsen/cslcite/internal/settings"
	"github.com/matsen/cslcite/internal/style"
)

// errNotFound hides why a request has nothing to show: a missing object and an
// object the user may not see look the same.
var errNotFound = errors.New("not found")

// citationResponse is the return=json envelope of the get endpoint.
type citationResponse struct {
	Status  bool   `json:"status"`
	Content string `json:"content,omitempty"`
}

// catalogResponse lists every style and download with per-context flags.
type catalogResponse struct {
	Styles    []style.Config `json:"citationStyles"`
	Downloads []style.Config `json:"citationDownloads"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// fail writes the response for an error from request setup or the mapper.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, reference.ErrNotFound),
		errors.Is(err, mapper.ErrNoPublication), errors.Is(err, mapper.ErrUnknownStyle):
		http.NotFound(w, r)
	case errors.Is(err, settings.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(RequestIDHeader)),
			zap.Error(err),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// queryID parses an optional numeric query parameter. Absent or zero is 0;
// anything unparsable is treated as naming nothing.
func queryID(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, errNotFound
	}
	return id, nil
}

// context resolves the context named by the first path segment.
func (s *Server) context(r *http.Request) (*reference.Context, error) {
	return s.store.ContextByPath(r.Context(), r.PathValue("context"))
}

// citationRequest loads the objects a get or download request names and checks
// that the user may see them.
func (s *Server) citationRequest(r *http.Request) (mapper.Request, error) {
	ctx := r.Context()
	c, err := s.context(r)
	if err != nil {
		return mapper.Request{}, err
	}

	submissionID, err := queryID(r, "submissionId")
	if err != nil {
		return mapper.Request{}, err
	}
	if submissionID == 0 {
		return mapper.Request{}, errNotFound
	}
	sub, err := s.store.Submission(ctx, c.ID, submissionID)
	if err != nil {
		return mapper.Request{}, err
	}

	pub := sub.CurrentPublication()
	if id, err := queryID(r, "publicationId"); err != nil {
		return mapper.Request{}, err
	} else if id != 0 {
		pub = sub.Publication(id)
	}
	if pub == nil {
		return mapper.Request{}, errNotFound
	}

	req := mapper.Request{
		Context:     c,
		Submission:  sub,
		Publication: pub,
		Locale:      r.URL.Query().Get("locale"),
	}

	if id, err := queryID(r, "chapterId"); err != nil {
		return mapper.Request{}, err
	} else if id != 0 {
		if req.Chapter = pub.Chapter(id); req.Chapter == nil {
			return mapper.Request{}, errNotFound
		}
	}

	if s.mapper.Application() == citation.Journal {
		issueID, err := queryID(r, "issueId")
		if err != nil {
			return mapper.Request{}, err
		}
		if issueID == 0 {
			issueID = pub.IssueID
		}
		if issueID != 0 {
			issue, err := s.store.Issue(ctx, issueID)
			if err != nil && !errors.Is(err, reference.ErrNotFound) {
				return mapper.Request{}, err
			}
			req.Issue = issue
		}
	}

	ok, err := s.policy.CanView(ctx, userFrom(ctx), sub, req.Issue)
	if err != nil {
		return mapper.Request{}, err
	}
	if !ok {
		return mapper.Request{}, errNotFound
	}
	return req, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := s.citationRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req.StyleID = r.PathValue("style")

	out, err := s.mapper.Citation(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("return") == "json" {
		writeJSON(w, http.StatusOK, citationResponse{Status: out != "", Content: out})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, err := s.citationRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req.StyleID = r.PathValue("style")

	d, err := s.mapper.Download(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", d.ContentDisposition())
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.Write(d.Body)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	req, err := s.citationRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	block, err := s.mapper.TemplateData(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	c, err := s.context(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()

	primary, err := s.styles.Primary(ctx, c.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	enabledStyles, err := s.styles.EnabledStyles(ctx, c.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	enabledDownloads, err := s.styles.EnabledDownloads(ctx, c.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Styles:    flag(s.styles.Styles(), enabledStyles, primary.ID),
		Downloads: flag(s.styles.Downloads(), enabledDownloads, ""),
	})
}

// flag sets the enabled and primary flags of catalog entries for one context.
func flag(catalog, enabled []style.Config, primaryID string) []style.Config {
	on := make(map[string]bool, len(enabled))
	for _, c := range enabled {
		on[c.ID] = true
	}
	for i := range catalog {
		catalog[i].IsEnabled = on[catalog[i].ID]
		catalog[i].IsPrimary = catalog[i].ID == primaryID
	}
	return catalog
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	c, err := s.context(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.settings.Load(r.Context(), c.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	c, err := s.context(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var st settings.Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&st); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settings body: " + err.Error()})
		return
	}
	if err := st.Validate(style.IDs(s.styles.Styles()), style.IDs(s.styles.Downloads())); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.settings.Save(r.Context(), c.ID, st); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("Settings saved", zap.Int64("context", c.ID))
	writeJSON(w, http.StatusOK, st)
}
