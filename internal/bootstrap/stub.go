package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/docgen-client/config"
	dochttp "github.com/GoSim-25-26J-441/docgen-client/internal/documents/http"
)

func SetGinMode(env string) {
	switch env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
}

// BuildStubServer wires the in-memory generation service on STUB_PORT.
func BuildStubServer(cfg *config.Config) *http.Server {
	SetGinMode(cfg.App.Environment)

	stub := dochttp.NewStubServer(dochttp.StubOptions{
		Token:   cfg.Stub.Token,
		Version: cfg.App.Version,
	})

	return &http.Server{
		Addr:              ":" + cfg.Stub.Port,
		Handler:           stub.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
