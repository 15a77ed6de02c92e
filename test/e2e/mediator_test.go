/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package e2e

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gexec"
)

func freeAddress() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer l.Close() //nolint:errcheck
	return l.Addr().String()
}

var _ = Describe("mediator", Ordered, func() {
	var (
		runtime *httptest.Server
		session *gexec.Session
		address string
	)

	BeforeAll(func() {
		runtime = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/endpoints/bert-endpoint/invocations":
				body, _ := io.ReadAll(r.Body)
				if strings.Contains(string(body), "fail") {
					w.WriteHeader(http.StatusFailedDependency)
					_, _ = w.Write([]byte(`{"ErrorCode":"ModelError","Message":"Received server error (500)"}`))
					return
				}
				_, _ = w.Write([]byte(`[{"label":"POSITIVE","score":0.99}]`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		DeferCleanup(runtime.Close)

		address = freeAddress()
		cmd := exec.Command(mediatorBin)
		cmd.Env = append(os.Environ(),
			"ENDPOINT_NAME=bert-endpoint",
			"RUNTIME_URL="+runtime.URL,
			"LISTEN_ADDRESS="+address,
		)
		var err error
		session, err = gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())

		By("waiting for the mediator to serve")
		Eventually(func() (int, error) {
			res, err := http.Get(fmt.Sprintf("http://%s/healthz", address))
			if err != nil {
				return 0, err
			}
			defer res.Body.Close() //nolint:errcheck
			return res.StatusCode, nil
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(http.StatusOK))
	})

	AfterAll(func() {
		session.Interrupt()
		Eventually(session, 10*time.Second).Should(gexec.Exit())
	})

	post := func(body string) (int, string) {
		res, err := http.Post(fmt.Sprintf("http://%s/bert", address), "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer res.Body.Close() //nolint:errcheck
		data, err := io.ReadAll(res.Body)
		Expect(err).NotTo(HaveOccurred())
		return res.StatusCode, string(data)
	}

	It("should forward requests to the bound endpoint", func() {
		status, body := post(`{"inputs": "great movie"}`)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`[{"label":"POSITIVE","score":0.99}]`))
	})

	It("should map provider errors", func() {
		status, body := post(`{"inputs": "fail"}`)
		Expect(status).To(Equal(http.StatusFailedDependency))
		Expect(body).To(MatchJSON(`"ModelError: Received server error (500)"`))
	})

	It("should reject invalid JSON", func() {
		status, body := post(`{"inputs":`)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(HavePrefix(`"InvalidRequest: `))
	})
})
