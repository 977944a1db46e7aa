package auth

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var authRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_requests_total",
	Help: "Auth operations by outcome: ok, rejected (client error) or error (server fault).",
}, []string{"op", "outcome"})

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	if code, _ := mapErr(err); code < http.StatusInternalServerError {
		return outcomeRejected
	}
	return outcomeError
}
