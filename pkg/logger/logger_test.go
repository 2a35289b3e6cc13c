package logger_test

import (
	"context"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcp-loadbalancer/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("New", func() {
	It("should create a logger", func() {
		log := logger.New("info", false, "dev")
		Expect(log).NotTo(BeNil())
	})

	It("should honor the debug level", func() {
		log := logger.New("debug", false, "dev")
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
	})

	It("should suppress debug at warn level", func() {
		log := logger.New("warn", false, "dev")
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
		Expect(log.Enabled(context.Background(), slog.LevelWarn)).To(BeTrue())
	})

	It("should default to info for unknown levels", func() {
		log := logger.New("loud", false, "dev")
		Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeTrue())
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
	})
})
