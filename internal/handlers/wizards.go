package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/heirloom-app/heirloom/internal/models"
	"github.com/heirloom-app/heirloom/internal/wizard"
)

const promptFetchTimeout = 30 * time.Second

func (h *Handler) HandleWizards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.StartWizardRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	members, err := h.family.List()
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	session := wizard.NewSession(uuid.NewString())
	step := session.Start(members, wizard.DeepLink{PersonID: req.PersonID, Prompt: req.Prompt})
	h.wizardStore.Set(session.ID(), session)

	slog.Info("Wizard started", "wizard_id", session.ID(), "step", step, "person_id", req.PersonID)
	h.writeJSON(w, http.StatusCreated, models.WizardResponse{Session: session.Snapshot()})
}

func (h *Handler) HandleWizardDetail(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/api/wizards/")
	session, ok := h.wizardStore.Get(id)
	if !ok {
		h.writeError(w, "Wizard not found", http.StatusNotFound)
		return
	}

	if action == "" {
		switch r.Method {
		case http.MethodGet:
			h.writeJSON(w, http.StatusOK, models.WizardResponse{Session: session.Snapshot()})
		case http.MethodDelete:
			h.wizardStore.Delete(id)
			h.writeJSON(w, http.StatusOK, models.WizardResponse{Session: session.Snapshot()})
		default:
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if action == "prompts" && r.Method == http.MethodGet {
		h.writeJSON(w, http.StatusOK, models.WizardResponse{Session: session.Snapshot()})
		return
	}
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		step wizard.Step
		err  error
	)
	switch action {
	case "person":
		var req models.SelectPersonRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		person, ferr := h.family.Get(req.PersonID)
		if ferr != nil {
			h.writeFailure(w, ferr)
			return
		}
		step, err = session.SelectPerson(person)
	case "type":
		var req models.SelectTypeRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		contentType, perr := wizard.ParseContentType(req.Type)
		if perr != nil {
			h.writeError(w, perr.Error(), http.StatusBadRequest)
			return
		}
		step, err = session.SelectType(contentType)
	case "prompt":
		var req models.SelectPromptRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		step, err = session.SelectPrompt(req.PromptText)
	case "back":
		step = session.GoBack()
	case "prompts":
		h.refreshPrompts(w, r, session)
		return
	case "finish":
		h.finishWizard(w, session)
		return
	default:
		h.writeError(w, "Unknown action "+action, http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	if step == wizard.StepPrompt {
		h.fetchPromptsAsync(session)
	}
	h.writeJSON(w, http.StatusOK, models.WizardResponse{Session: session.Snapshot()})
}

// fetchPromptsAsync loads suggestions in the background; the snapshot shows
// the loading status until it completes
func (h *Handler) fetchPromptsAsync(session *wizard.Session) {
	if h.prompts == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(h.baseCtx, promptFetchTimeout)
		defer cancel()
		if err := session.FetchPrompts(ctx, h.prompts); err != nil {
			slog.Warn("Prompt fetch failed", "wizard_id", session.ID(), "err", err)
		}
	}()
}

// refreshPrompts is the retry affordance: it fetches synchronously and
// returns the snapshot, whose status reports a failure
func (h *Handler) refreshPrompts(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if h.prompts == nil {
		h.writeError(w, "Prompt suggestions are not configured", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), promptFetchTimeout)
	defer cancel()

	if err := session.FetchPrompts(ctx, h.prompts); err != nil {
		if session.Step() != wizard.StepPrompt {
			h.writeFailure(w, err)
			return
		}
		slog.Warn("Prompt refresh failed", "wizard_id", session.ID(), "err", err)
	}
	h.writeJSON(w, http.StatusOK, models.WizardResponse{Session: session.Snapshot()})
}

func (h *Handler) finishWizard(w http.ResponseWriter, session *wizard.Session) {
	intent, err := session.Finish()
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.wizardStore.Delete(session.ID())

	slog.Info("Wizard finished", "wizard_id", session.ID(), "target", intent.Target, "person_id", intent.PersonID)
	h.writeJSON(w, http.StatusOK, models.FinishResponse{Intent: intent, URL: intent.URL()})
}
