package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskgate/internal/todo/models"
	"taskgate/pkg/domain"
	dErrors "taskgate/pkg/domain-errors"
)

// TodoService is the surface of the todo service the HTTP layer needs.
type TodoService interface {
	List(ctx context.Context, owner domain.UserID) ([]*models.Todo, error)
	Get(ctx context.Context, owner domain.UserID, id domain.TodoID) (*models.Todo, error)
	Create(ctx context.Context, owner domain.UserID, title, description string) (*models.Todo, error)
	Update(ctx context.Context, owner domain.UserID, id domain.TodoID, patch models.Patch) (*models.Todo, error)
	Delete(ctx context.Context, owner domain.UserID, id domain.TodoID) error
}

// TodoHandler handles the task CRUD endpoints. All routes assume the session
// middleware already placed the account in the request context.
type TodoHandler struct {
	todos  TodoService
	logger *slog.Logger
}

// NewTodoHandler creates a new todo handler.
func NewTodoHandler(todos TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, logger: logger}
}

// Register registers the todo routes with the chi router.
func (h *TodoHandler) Register(r chi.Router) {
	r.Get("/todos", h.handleList)
	r.Post("/todos", h.handleCreate)
	r.Get("/todos/{todoID}", h.handleGet)
	r.Patch("/todos/{todoID}", h.handleUpdate)
	r.Delete("/todos/{todoID}", h.handleDelete)
}

func (h *TodoHandler) owner(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	account := AccountFrom(r.Context())
	if account == nil {
		h.logger.ErrorContext(r.Context(), "account missing from context despite session middleware")
		writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return domain.UserID{}, false
	}
	return account.ID, true
}

func todoIDParam(r *http.Request) (domain.TodoID, error) {
	return domain.ParseTodoID(chi.URLParam(r, "todoID"))
}

func (h *TodoHandler) handleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	todos, err := h.todos.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

type createTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *TodoHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	todo, err := h.todos.Create(r.Context(), owner, req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	id, err := todoIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	todo, err := h.todos.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	id, err := todoIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch models.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	todo, err := h.todos.Update(r.Context(), owner, id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	id, err := todoIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.todos.Delete(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
