package httpserver_test

import (
	"context"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/tcp-loadbalancer/internal/httpserver"
)

func TestHttpserver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Httpserver Suite")
}

var _ = Describe("Server", func() {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	Describe("New", func() {
		It("should accept a valid host:port address", func() {
			srv, err := httpserver.New("127.0.0.1:0", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should accept a port-only bind", func() {
			srv, err := httpserver.New(":8080", handler)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should reject an address without a port", func() {
			_, err := httpserver.New("localhost", handler)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an invalid host", func() {
			_, err := httpserver.New("not a host:8080", handler)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Start and Shutdown", func() {
		It("should return cleanly after shutdown", func() {
			srv, err := httpserver.New("127.0.0.1:0", handler)
			Expect(err).NotTo(HaveOccurred())

			startErr := make(chan error, 1)
			go func() {
				startErr <- srv.Start()
			}()

			Expect(srv.Shutdown(context.Background())).To(Succeed())
			Eventually(startErr).Should(Receive(BeNil()))
		})
	})
})
