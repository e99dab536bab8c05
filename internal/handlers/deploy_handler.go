package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os/exec"
	"time"

	"github.com/gin-gonic/gin"

	"granafacil/internal/logger"
)

// CommandRunner executes one deploy step and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs commands on the host.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// deployStep is one fixed step of the deploy pipeline.
type deployStep struct {
	Label string
	Name  string
	Args  []string
}

// deployPipeline is the fixed sequence the deploy webhook runs. Steps
// are never derived from request input.
var deployPipeline = []deployStep{
	{Label: "git pull", Name: "git", Args: []string{"pull", "--ff-only"}},
	{Label: "build", Name: "docker", Args: []string{"compose", "build", "api"}},
	{Label: "restart", Name: "docker", Args: []string{"compose", "up", "-d", "api"}},
	{Label: "health check", Name: "curl", Args: []string{"-fsS", "http://localhost:8080/health"}},
}

// DeployHandler handles the deploy webhook and the health probe.
type DeployHandler struct {
	secret string
	runner CommandRunner
}

// NewDeployHandler creates a new DeployHandler. A nil runner executes
// commands on the host.
func NewDeployHandler(secret string, runner CommandRunner) *DeployHandler {
	if runner == nil {
		runner = execRunner{}
	}
	return &DeployHandler{secret: secret, runner: runner}
}

// DeployRequest is the deploy trigger payload.
type DeployRequest struct {
	Secret   string `json:"secret"`
	DeployID string `json:"deployId"`
	Branch   string `json:"branch"`
}

// DeployResponse represents the outcome of a deploy run
type DeployResponse struct {
	Success   bool      `json:"success"`
	DeployID  string    `json:"deployId"`
	Logs      []string  `json:"logs"`
	Timestamp time.Time `json:"timestamp"`
}

// Deploy handles the deploy webhook
// @Summary     Trigger a deploy
// @Description Run the fixed deploy pipeline after verifying the shared secret
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       payload body DeployRequest true "Deploy trigger"
// @Success     200 {object} DeployResponse "Deploy succeeded"
// @Failure     401 {object} ErrorResponse "Invalid secret"
// @Failure     500 {object} DeployResponse "A pipeline step failed"
// @Router      /deploy [post]
func (h *DeployHandler) Deploy(c *gin.Context) {
	// Verify the secret before touching anything on the host. A body
	// that does not parse carries no valid secret either way.
	var req DeployRequest
	_ = c.ShouldBindJSON(&req)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid deploy secret"},
		})
		return
	}

	if req.Branch == "" {
		req.Branch = "main"
	}
	deployID := req.DeployID
	log := logger.Get()
	log.Infow("deploy started", "deploy_id", deployID, "branch", req.Branch)

	var logs []string
	for _, step := range deployPipeline {
		out, err := h.runner.Run(c.Request.Context(), step.Name, step.Args...)
		logs = append(logs, step.Label+": "+out)
		if err != nil {
			log.Errorw("deploy step failed",
				"deploy_id", deployID,
				"step", step.Label,
				"error", err,
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success":   false,
				"deployId":  deployID,
				"logs":      logs,
				"timestamp": time.Now(),
			})
			return
		}
	}

	log.Infow("deploy finished", "deploy_id", deployID)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"deployId":  deployID,
		"logs":      logs,
		"timestamp": time.Now(),
	})
}

// Health handles the liveness probe
// @Summary     Health check
// @Description Report service liveness
// @Tags        health
// @Produce     json
// @Success     200 {object} map[string]interface{} "Service is up"
// @Router      /health [get]
func (h *DeployHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "granafacil-api",
	})
}
