package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/davrot/todolist/internal/identity"
	"github.com/davrot/todolist/internal/todo"
	"github.com/davrot/todolist/internal/todo/service"
	"github.com/davrot/todolist/internal/todo/validation"
	"github.com/davrot/todolist/pkg/logger"
	"github.com/davrot/todolist/pkg/metrics"
	"github.com/gin-gonic/gin"
)

const (
	ListPath   = "/list-todos"
	AddPath    = "/add-todo"
	UpdatePath = "/update-todo"
	DeletePath = "/delete-todo"
	LoginPath  = "/login"
)

// FieldForm keys the error shown when the submitted body cannot be read at all.
const FieldForm = "form"

const unreadableForm = "The submitted form could not be read"

var log = logger.Named("todo-http")

// todoForm is the submitted create/update form. It has no owner field; the
// owner always comes from the authenticated identity.
type todoForm struct {
	ID          formID   `form:"id" json:"id"`
	Description string   `form:"description" json:"description"`
	TargetDate  string   `form:"targetDate" json:"targetDate"`
	Done        checkbox `form:"done" json:"done"`
}

// formID is a submitted record id. Values that are not a positive integer
// read as 0, which no record has.
type formID int64

func (id *formID) UnmarshalParam(param string) error {
	v, err := strconv.ParseInt(strings.TrimSpace(param), 10, 64)
	if err != nil || v < 0 {
		v = 0
	}
	*id = formID(v)
	return nil
}

func (id *formID) UnmarshalJSON(b []byte) error {
	return id.UnmarshalParam(strings.Trim(string(b), `"`))
}

// checkbox accepts what browsers send for a ticked box ("on") as well as
// true/1. Anything else is unticked.
type checkbox bool

func (cb *checkbox) UnmarshalParam(param string) error {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "on", "true", "1", "yes":
		*cb = true
	default:
		*cb = false
	}
	return nil
}

func (cb *checkbox) UnmarshalJSON(b []byte) error {
	return cb.UnmarshalParam(strings.Trim(string(b), `"`))
}

type todoView struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Description string `json:"description"`
	TargetDate  string `json:"targetDate"`
	Done        bool   `json:"done"`
}

// formView is what the add/update pages render: the values to show in the
// fields plus any field errors.
type formView struct {
	Action               string            `json:"action"`
	Todo                 todoForm          `json:"todo"`
	Errors               map[string]string `json:"errors,omitempty"`
	MinDescriptionLength int               `json:"minDescriptionLength"`
}

func newTodoView(t *todo.Todo) todoView {
	return todoView{
		ID:          t.ID,
		Username:    t.Owner,
		Description: t.Description,
		TargetDate:  todo.FormatDate(t.TargetDate),
		Done:        t.Done,
	}
}

// RegisterTodoRoutes registers the welcome page and the four todo operations.
// r is expected to sit behind the authentication middleware; the handlers
// still refuse requests without an identity.
func RegisterTodoRoutes(r gin.IRoutes, svc service.Service) {
	h := &todoHandler{svc: svc}
	r.GET("/", h.welcome)
	r.GET(ListPath, h.list)
	r.GET(AddPath, h.showAdd)
	r.POST(AddPath, h.add)
	r.GET(UpdatePath, h.showUpdate)
	r.POST(UpdatePath, h.update)
	r.GET(DeletePath, h.delete)
}

type todoHandler struct {
	svc service.Service
}

// username resolves the caller or redirects to the login page.
func (h *todoHandler) username(c *gin.Context) (string, bool) {
	name, err := identity.Current(c)
	if err != nil {
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
		return "", false
	}
	return name, true
}

func (h *todoHandler) welcome(c *gin.Context) {
	name, ok := h.username(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (h *todoHandler) list(c *gin.Context) {
	name, ok := h.username(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), name)
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	out := make([]todoView, 0, len(list))
	for _, t := range list {
		out = append(out, newTodoView(t))
	}
	metrics.TodoOperations.WithLabelValues("list", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"name": name, "todos": out})
}

func (h *todoHandler) showAdd(c *gin.Context) {
	if _, ok := h.username(c); !ok {
		return
	}
	c.JSON(http.StatusOK, h.form(AddPath, todoForm{}, nil))
}

func (h *todoHandler) add(c *gin.Context) {
	name, ok := h.username(c)
	if !ok {
		return
	}
	var f todoForm
	if err := c.ShouldBind(&f); err != nil {
		h.unreadable(c, "create", AddPath, err)
		return
	}
	// ids are never accepted on create
	f.ID = 0
	_, err := h.svc.Create(c.Request.Context(), name, service.Input{Description: f.Description, TargetDate: f.TargetDate})
	if err != nil {
		if !h.redisplay(c, "create", err, AddPath, f) {
			h.fail(c, "create", err)
		}
		return
	}
	metrics.TodoOperations.WithLabelValues("create", "ok").Inc()
	c.Redirect(http.StatusFound, ListPath)
}

func (h *todoHandler) showUpdate(c *gin.Context) {
	name, ok := h.username(c)
	if !ok {
		return
	}
	id, ok := parseID(c.Query("id"))
	if !ok {
		h.fail(c, "show", service.ErrNotFound)
		return
	}
	t, err := h.svc.Authorize(c.Request.Context(), name, id)
	if err != nil {
		h.fail(c, "show", err)
		return
	}
	metrics.TodoOperations.WithLabelValues("show", "ok").Inc()
	c.JSON(http.StatusOK, h.form(UpdatePath, todoForm{
		ID:          formID(t.ID),
		Description: t.Description,
		TargetDate:  todo.FormatDate(t.TargetDate),
		Done:        checkbox(t.Done),
	}, nil))
}

func (h *todoHandler) update(c *gin.Context) {
	name, ok := h.username(c)
	if !ok {
		return
	}
	var f todoForm
	if err := c.ShouldBind(&f); err != nil {
		h.unreadable(c, "update", UpdatePath, err)
		return
	}
	if f.ID == 0 {
		if id, ok := parseID(c.Query("id")); ok {
			f.ID = formID(id)
		}
	}
	if f.ID <= 0 {
		h.fail(c, "update", service.ErrNotFound)
		return
	}
	_, err := h.svc.Update(c.Request.Context(), name, int64(f.ID), service.Input{
		Description: f.Description,
		TargetDate:  f.TargetDate,
		Done:        bool(f.Done),
	})
	if err != nil {
		if !h.redisplay(c, "update", err, UpdatePath, f) {
			h.fail(c, "update", err)
		}
		return
	}
	metrics.TodoOperations.WithLabelValues("update", "ok").Inc()
	c.Redirect(http.StatusFound, ListPath)
}

func (h *todoHandler) delete(c *gin.Context) {
	name, ok := h.username(c)
	if !ok {
		return
	}
	id, ok := parseID(c.Query("id"))
	if !ok {
		h.fail(c, "delete", service.ErrNotFound)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), name, id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	metrics.TodoOperations.WithLabelValues("delete", "ok").Inc()
	c.Redirect(http.StatusFound, ListPath)
}

func (h *todoHandler) form(action string, f todoForm, errs map[string]string) formView {
	return formView{
		Action:               action,
		Todo:                 f,
		Errors:               errs,
		MinDescriptionLength: h.svc.MinDescriptionLength(),
	}
}

// redisplay re-renders the submitted form with its field error when err is a
// validation failure. It reports whether it handled err.
func (h *todoHandler) redisplay(c *gin.Context, op string, err error, action string, f todoForm) bool {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return false
	}
	metrics.TodoOperations.WithLabelValues(op, "invalid").Inc()
	c.JSON(http.StatusOK, h.form(action, f, map[string]string{verr.Field: verr.Message}))
	return true
}

// unreadable re-renders an empty form when the body could not be bound.
func (h *todoHandler) unreadable(c *gin.Context, op, action string, err error) {
	log.Debugf("%s: bind: %v", op, err)
	metrics.TodoOperations.WithLabelValues(op, "invalid").Inc()
	c.JSON(http.StatusOK, h.form(action, todoForm{}, map[string]string{FieldForm: unreadableForm}))
}

// fail maps not-found and persistence errors to generic responses.
func (h *todoHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, service.ErrNotFound) {
		metrics.TodoOperations.WithLabelValues(op, "not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	metrics.TodoOperations.WithLabelValues(op, "error").Inc()
	log.Errorf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
