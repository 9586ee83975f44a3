// AngelaMos | 2026
// metrics.go

// Package metrics defines the Prometheus collectors for the forum API. All
// collectors register with the default registry on import.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forum"

// VotesTotal counts applied votes.
// Labels:
//   - direction: "upVote" or "downVote"
//   - result: "added", "removed" or "switched"
var VotesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Total number of vote toggles applied to posts.",
	},
	[]string{"direction", "result"},
)

// PostsCreatedTotal counts created posts by author tier.
var PostsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_created_total",
		Help:      "Total number of posts created, by author tier.",
	},
	[]string{"tier"},
)

// QuotaRejectionsTotal counts post creations refused by the standard-tier quota.
var QuotaRejectionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Total number of post creations rejected by the post quota.",
	},
)

// ReportsFiledTotal counts filed reports.
// Labels:
//   - target_type: "post" or "comment"
//   - result: "created" or "duplicate"
var ReportsFiledTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_filed_total",
		Help:      "Total number of report submissions, by target type and outcome.",
	},
	[]string{"target_type", "result"},
)

// ReportsResolvedTotal counts moderator decisions.
// Labels:
//   - target_type: "post" or "comment"
//   - resolution: "actioned" or "dismissed"
var ReportsResolvedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_resolved_total",
		Help:      "Total number of reports resolved by moderators.",
	},
	[]string{"target_type", "resolution"},
)

// RoleChangesTotal counts admin role and tier changes.
var RoleChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_changes_total",
		Help:      "Total number of role or tier changes, by new value.",
	},
	[]string{"kind", "value"},
)

// RateLimitedTotal counts requests turned away with 429.
// Labels:
//   - scope: "global", "tier" or "reports"
//   - backend: "redis" or "local"
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by a rate limiter.",
	},
	[]string{"scope", "backend"},
)

func Handler() http.Handler {
	return promhttp.Handler()
}
