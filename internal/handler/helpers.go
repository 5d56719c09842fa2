package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var hexColorRegexp = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
