package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imom29/CodeCollab/internal/ratelimit"
	"github.com/imom29/CodeCollab/internal/suggest"
)

type API struct {
	generator suggest.Generator
	limiters  *ratelimit.ClientLimiters
	log       *logrus.Entry
}

// New builds the HTTP handler set. generator may be nil when no API key is
// configured; /suggest then always answers with the fallback message.
func New(generator suggest.Generator, limiters *ratelimit.ClientLimiters, logger *logrus.Logger) *API {
	return &API{
		generator: generator,
		limiters:  limiters,
		log:       logger.WithField("component", "api"),
	}
}

type SuggestRequest struct {
	Question string `json:"question"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

type SuggestResponse struct {
	Answer string `json:"answer"`
}

func (a *API) Healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (a *API) Suggest(c *gin.Context) {
	var req SuggestRequest
	// Absent or malformed fields become empty strings and still go
	// upstream; the request shape is not validated.
	_ = c.ShouldBindJSON(&req)

	if a.limiters != nil && !a.limiters.Get(c.ClientIP()).Allow() {
		c.JSON(http.StatusTooManyRequests, SuggestResponse{Answer: suggest.FallbackAnswer})
		return
	}

	if a.generator == nil {
		a.log.Warn("Suggestion requested but no generator is configured")
		c.JSON(http.StatusInternalServerError, SuggestResponse{Answer: suggest.FallbackAnswer})
		return
	}

	prompt := suggest.BuildPrompt(req.Question, req.Code, req.Language)
	answer, err := a.generator.Generate(c.Request.Context(), prompt)
	if err != nil {
		a.log.WithError(err).Error("Suggestion upstream call failed")
		c.JSON(http.StatusInternalServerError, SuggestResponse{Answer: suggest.FallbackAnswer})
		return
	}

	c.JSON(http.StatusOK, SuggestResponse{Answer: answer})
}
