package logger_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("NewLoggerWithWriters", func() {
	It("writes named console lines to the given writer", func() {
		var buf bytes.Buffer
		log := logger.NewLoggerWithWriters(false, &buf)

		log.Info("extraction cycle complete")
		_ = log.Sync()

		out := buf.String()
		Expect(out).To(ContainSubstring("INFO"))
		Expect(out).To(ContainSubstring("chronicle"))
		Expect(out).To(ContainSubstring("extraction cycle complete"))
	})

	It("drops debug lines unless debug is enabled", func() {
		var quiet, verbose bytes.Buffer

		logger.NewLoggerWithWriters(false, &quiet).Debug("selected turns")
		logger.NewLoggerWithWriters(true, &verbose).Debug("selected turns")

		Expect(quiet.String()).To(BeEmpty())
		Expect(verbose.String()).To(ContainSubstring("selected turns"))
	})

	It("fans out to every writer", func() {
		var first, second bytes.Buffer
		log := logger.NewLoggerWithWriters(false, &first, &second)

		log.Warn("backfill batch failed")

		Expect(first.String()).To(ContainSubstring("backfill batch failed"))
		Expect(second.String()).To(ContainSubstring("backfill batch failed"))
	})
})
