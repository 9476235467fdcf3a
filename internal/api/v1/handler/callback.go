package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"app/internal/service"
)

// normalizeCallback extracts settlement parameters from a gateway callback
// request. Gateways deliver callbacks inconsistently: fields may arrive as
// query parameters, a JSON body (possibly nested) or a form-encoded body.
// Query parameters always win over body fields.
func normalizeCallback(r *http.Request) service.CallbackParams {
	fields := map[string]string{}

	if r.Method == http.MethodPost && r.Body != nil {
		ct := r.Header.Get("Content-Type")
		if strings.Contains(ct, "application/json") {
			var body map[string]any
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err == nil {
				collectCallbackFields(body, fields)
			}
		} else if err := r.ParseForm(); err == nil {
			for k, vs := range r.PostForm {
				if len(vs) > 0 && vs[0] != "" {
					setCallbackField(fields, k, vs[0])
				}
			}
		}
	}

	for k, vs := range r.URL.Query() {
		if len(vs) > 0 && vs[0] != "" {
			fields[strings.ToLower(k)] = vs[0]
		}
	}

	return service.CallbackParams{
		OrderID:       firstCallbackField(fields, "order_id", "link_id"),
		Status:        strings.ToLower(firstCallbackField(fields, "status", "link_status", "txstatus")),
		PaymentMethod: firstCallbackField(fields, "payment_method"),
		FailureReason: firstCallbackField(fields, "failure_reason", "txmsg"),
	}
}

// collectCallbackFields walks a decoded JSON body depth-first, keeping the
// first value seen for each leaf key. Shallow fields therefore beat nested
// duplicates.
func collectCallbackFields(node map[string]any, fields map[string]string) {
	var nested []map[string]any
	for k, v := range node {
		switch value := v.(type) {
		case string:
			setCallbackField(fields, k, value)
		case float64:
			setCallbackField(fields, k, strconv.FormatFloat(value, 'f', -1, 64))
		case bool:
			setCallbackField(fields, k, strconv.FormatBool(value))
		case map[string]any:
			nested = append(nested, value)
		}
	}
	for _, child := range nested {
		collectCallbackFields(child, fields)
	}
}

func setCallbackField(fields map[string]string, key, value string) {
	key = strings.ToLower(key)
	if _, exists := fields[key]; !exists {
		fields[key] = value
	}
}

func firstCallbackField(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}
