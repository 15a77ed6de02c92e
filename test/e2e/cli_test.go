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
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
)

func runPlanner(args ...string) *gexec.Session {
	cmd := exec.Command(plannerBin, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
	Expect(err).NotTo(HaveOccurred())
	Eventually(session, 30*time.Second).Should(gexec.Exit())
	return session
}

func writeTemp(name, content string) string {
	path := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = Describe("planner CLI", func() {
	var (
		models  = filepath.Join(samplesDir, "models.json")
		catalog = filepath.Join(samplesDir, "catalog.yaml")
	)

	It("should compile the sample configuration", func() {
		session := runPlanner("compile", models, "--catalog", catalog, "--account-id", "123456789012")
		Expect(session.ExitCode()).To(Equal(0))

		var plan v1alpha1.DeploymentPlan
		Expect(json.Unmarshal(session.Out.Contents(), &plan)).To(Succeed())

		Expect(plan.Endpoints).To(HaveLen(2))
		Expect(plan.Endpoints[0].EndpointName).To(Equal("bert-endpoint"))
		Expect(plan.Endpoints[0].Source.Kind()).To(Equal(v1alpha1.ModelSourceLookup))
		Expect(plan.Endpoints[1].Source.Kind()).To(Equal(v1alpha1.ModelSourcePackage))

		var paths []string
		for _, r := range plan.Routes {
			paths = append(paths, r.Path)
		}
		Expect(paths).To(Equal([]string{"bert", "summarizer", "legacy-classifier"}))
		Expect(plan.Routes[1].State).To(Equal(v1alpha1.RouteMediatedBound))
	})

	It("should produce identical plans across strategies", func() {
		first := runPlanner("compile", models, "--catalog", catalog, "--resolution-strategy", "sequential")
		second := runPlanner("compile", models, "--catalog", catalog, "--resolution-strategy", "concurrent")
		Expect(first.ExitCode()).To(Equal(0))
		Expect(second.ExitCode()).To(Equal(0))
		Expect(first.Out.Contents()).To(MatchJSON(second.Out.Contents()))
	})

	It("should compile from the SQLite catalog", func() {
		db := filepath.Join(GinkgoT().TempDir(), "catalog.db")
		imported := runPlanner("catalog", "import", catalog, "--catalog-db", db)
		Expect(imported.ExitCode()).To(Equal(0))
		Expect(imported.Out).To(gbytes.Say("imported 2 models"))

		listed := runPlanner("catalog", "list", "--catalog-db", db)
		Expect(listed.ExitCode()).To(Equal(0))
		Expect(listed.Out).To(gbytes.Say("huggingface-bert"))

		out := filepath.Join(GinkgoT().TempDir(), "plan.yaml")
		session := runPlanner("compile", models, "--catalog-db", db, "-o", "yaml", "--destination", out)
		Expect(session.ExitCode()).To(Equal(0))
		Expect(session.Out).To(gbytes.Say("bert-endpoint"))
		Expect(out).To(BeAnExistingFile())
	})

	It("should read the planner configuration file", func() {
		session := runPlanner("compile", models, "--config", filepath.Join(samplesDir, "planner.yaml"),
			"--catalog", catalog)
		Expect(session.ExitCode()).To(Equal(0))
		Expect(session.Out).To(gbytes.Say("configHash:"))
	})

	It("should reject a model with both sources", func() {
		path := writeTemp("conflict.json", `{"models":[{"name":"bert","model_id":"huggingface-bert",
			"model_package_arn":"arn:aws:sagemaker:us-east-1:123456789012:model-package/x",
			"instance":"ml.m5.xlarge","integration":{"type":"api"}}]}`)
		session := runPlanner("compile", path, "--catalog", catalog)
		Expect(session.ExitCode()).To(Equal(1))
		Expect(session.Out.Contents()).To(BeEmpty())
		Expect(session.Err).To(gbytes.Say("model-source"))
	})

	It("should report validation results per file", func() {
		bad := writeTemp("bad.json", `{"models":[{"name":"bert","model_id":"x","instance":"ml.m5.xlarge","integration":{"type":"lambda"}}]}`)
		session := runPlanner("validate", models, bad)
		Expect(session.ExitCode()).To(Equal(1))
		Expect(session.Out).To(gbytes.Say("valid"))
		Expect(session.Out).To(gbytes.Say(`models\[0\]\.integration\.properties`))
	})

	It("should print its version", func() {
		session := runPlanner("version")
		Expect(session.ExitCode()).To(Equal(0))
		Expect(session.Out).To(gbytes.Say("model-api-planner version"))
	})
})
