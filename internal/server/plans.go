package server

import (
	"context"
	"fmt"
	"net/http"

	"middag/internal/app"
	"middag/internal/i18n"
	"middag/internal/share"
)

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	m, err := s.planner.Menu(r.Context())
	if err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleGenerate regenerates a posted state without storing it. A state
// without a plan starts a new one.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var st share.State
	if err := decode(r, w, &st); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	lang := s.langFor(r, st.Language)
	if err := st.Validate(); err != nil {
		s.fail(w, r, lang, err)
		return
	}

	var (
		out share.State
		err error
	)
	if len(st.Plan) == 0 {
		out, err = s.planner.NewState(r.Context(), app.NewStateRequest{
			Language:   st.Language,
			Policy:     string(st.SelectionPolicy),
			Categories: st.SelectedCategories,
		})
	} else {
		out, err = s.planner.Regenerate(r.Context(), st)
	}
	if err != nil {
		s.fail(w, r, lang, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type createPlanReq struct {
	Language   string   `json:"language"`
	Policy     string   `json:"policy"`
	Categories []string `json:"categories"`
}

type createPlanResp struct {
	ID    string      `json:"id"`
	URL   string      `json:"url,omitempty"`
	State share.State `json:"state"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanReq
	if err := decode(r, w, &req); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	lang := s.langFor(r, req.Language)

	st, err := s.planner.NewState(r.Context(), app.NewStateRequest{
		Language:   req.Language,
		Policy:     req.Policy,
		Categories: req.Categories,
	})
	if err != nil {
		s.fail(w, r, lang, err)
		return
	}
	id, err := s.sessions.Create(r.Context(), st)
	if err != nil {
		s.fail(w, r, lang, err)
		return
	}
	writeJSON(w, http.StatusCreated, createPlanResp{ID: id, URL: s.PlanURL(id), State: st})
}

// PlanURL returns the public link of a shared plan, or "" without a base URL.
func (s *Server) PlanURL(id string) string {
	if s.publicBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/plans/%s", s.publicBaseURL, id)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleReplacePlan(w http.ResponseWriter, r *http.Request) {
	var st share.State
	if err := decode(r, w, &st); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	out, err := s.sessions.Replace(r.Context(), r.PathValue("id"), st)
	if err != nil {
		s.fail(w, r, s.langFor(r, st.Language), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// update applies fn to the shared plan named in the path and answers with
// the new state.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(context.Context, share.State) (share.State, error)) {
	ctx := r.Context()
	var stateLang string
	st, err := s.sessions.Update(ctx, r.PathValue("id"), func(cur share.State) (share.State, error) {
		stateLang = cur.Language
		return fn(ctx, cur)
	})
	if err != nil {
		s.fail(w, r, s.langFor(r, stateLang), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, s.planner.Regenerate)
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	slot := r.PathValue("slot")
	s.update(w, r, func(_ context.Context, st share.State) (share.State, error) {
		return s.planner.ToggleLock(st, slot)
	})
}

type editDishReq struct {
	Dish string `json:"dish"`
}

func (s *Server) handleEditDish(w http.ResponseWriter, r *http.Request) {
	var req editDishReq
	if err := decode(r, w, &req); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	slot := r.PathValue("slot")
	s.update(w, r, func(_ context.Context, st share.State) (share.State, error) {
		return s.planner.EditDish(st, slot, req.Dish)
	})
}

type reorderReq struct {
	IDs      []string `json:"ids"`
	ActiveID string   `json:"activeId"`
	OverID   string   `json:"overId"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderReq
	if err := decode(r, w, &req); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	s.update(w, r, func(_ context.Context, st share.State) (share.State, error) {
		switch {
		case req.IDs != nil:
			return s.planner.Reorder(st, req.IDs)
		case req.ActiveID != "" && req.OverID != "":
			return s.planner.Move(st, req.ActiveID, req.OverID)
		default:
			return st, fmt.Errorf("%w: ids or activeId and overId required", app.ErrBadInput)
		}
	})
}

type languageReq struct {
	Language string `json:"language"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageReq
	if err := decode(r, w, &req); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	s.update(w, r, func(ctx context.Context, st share.State) (share.State, error) {
		return s.planner.SetLanguage(ctx, st, req.Language)
	})
}

type policyReq struct {
	Policy string `json:"policy"`
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	var req policyReq
	if err := decode(r, w, &req); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	s.update(w, r, func(_ context.Context, st share.State) (share.State, error) {
		return s.planner.SetPolicy(st, req.Policy), nil
	})
}

type categoriesReq struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleSetCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesReq
	if err := decode(r, w, &req); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	if req.Categories == nil {
		s.writeError(w, http.StatusBadRequest, s.lang(r), i18n.KeyBadRequest)
		return
	}
	s.update(w, r, func(ctx context.Context, st share.State) (share.State, error) {
		return s.planner.SetCategories(ctx, st, req.Categories)
	})
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	s.update(w, r, func(_ context.Context, st share.State) (share.State, error) {
		return s.planner.ToggleCategory(st, category), nil
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.planner.CopyText(st)))
}
