package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

func (h *handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("Encode JSON response", zap.Error(err))
	}
}

func (h *handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondInternal logs err and answers with a generic 500.
func (h *handler) respondInternal(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.Logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, message)
}

// decodeJSON reads the body into dst and runs struct validation on it.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

type validatorAdapter struct {
	v *validator.Validate
}

func newValidator() *validatorAdapter {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &validatorAdapter{v: v}
}

// Struct validates s and condenses the first failure into a readable error.
func (a *validatorAdapter) Struct(s interface{}) error {
	err := a.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return fmt.Errorf("invalid %s: failed %q", field, fe.Tag())
	}
	return err
}

func pageFromQuery(r *http.Request) store.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.PageRequest{Page: page, Limit: limit}
}
