package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.viam.com/test"

	"go.viam.com/collisiondistance/distancefield"
)

const testURDF = `<?xml version="1.0"?>
<robot name="cli_test">
  <link name="world"/>
  <link name="base">
    <collision>
      <origin xyz="0 0 0.025"/>
      <geometry><box size="0.2 0.2 0.05"/></geometry>
    </collision>
  </link>
  <link name="arm">
    <collision>
      <origin xyz="0 0 0.1"/>
      <geometry><capsule radius="0.02" length="0.2"/></geometry>
    </collision>
  </link>
  <link name="obstacle">
    <collision>
      <geometry><box size="0.1 0.1 0.1"/></geometry>
    </collision>
  </link>
  <joint name="base_joint" type="fixed">
    <parent link="world"/>
    <child link="base"/>
  </joint>
  <joint name="shoulder" type="revolute">
    <parent link="base"/>
    <child link="arm"/>
    <origin xyz="0 0 0.05"/>
    <axis xyz="0 0 1"/>
    <limit lower="-3.14" upper="3.14"/>
  </joint>
  <joint name="turntable" type="revolute">
    <parent link="world"/>
    <child link="obstacle"/>
    <origin xyz="0.11 0 0.15"/>
    <axis xyz="0 0 1"/>
    <limit lower="-1" upper="1"/>
  </joint>
</robot>`

const testSRDF = `<?xml version="1.0"?>
<robot name="cli_test">
  <group name="arm">
    <link name="arm"/>
  </group>
  <disable_collisions link1="base" link2="arm" reason="Adjacent"/>
</robot>`

const testConfig = `{
  "voxel_size": 5,
  "background": 200,
  "exterior_band": 20,
  "interior_band": 3,
  "sphere_attempts": 3
}`

func writeTestFiles(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{"robot.urdf": testURDF, "robot.srdf": testSRDF, "config.json": testConfig}
	for name, content := range files {
		test.That(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600), test.ShouldBeNil)
	}
	global := []string{
		"sdfdistance",
		"--urdf", filepath.Join(dir, "robot.urdf"),
		"--srdf", filepath.Join(dir, "robot.srdf"),
		"--config", filepath.Join(dir, "config.json"),
	}
	return dir, global
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(args)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir, global := writeTestFiles(t)
	archive := filepath.Join(dir, "robot.sdf")
	with := func(args ...string) []string {
		return append(append([]string{}, global...), args...)
	}

	out, err := run(t, with("build", "--out", archive)...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Wrote")
	test.That(t, out, test.ShouldContainSubstring, "obstacle")
	_, err = os.Stat(archive)
	test.That(t, err, test.ShouldBeNil)

	out, err = run(t, with("query", "--archive", archive, "--joint", "turntable=0.1", "--gradient")...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Minimum distance")
	test.That(t, out, test.ShouldContainSubstring, "obstacle")
	test.That(t, out, test.ShouldNotContainSubstring, "self collision")

	out, err = run(t, with("exact")...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "obstacle")
	test.That(t, out, test.ShouldContainSubstring, "40.000")

	out, err = run(t, with("spheres", "--archive", archive)...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "arm")

	prefix := filepath.Join(dir, "grids")
	out, err = run(t, with("points", "--archive", archive, "--out", prefix, "--exclude", "base", "--binary")...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Count(out, "Wrote"), test.ShouldEqual, 2)
	for _, name := range []string{"grids_inside.pcd", "grids_outside.pcd"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(data), test.ShouldContainSubstring, "DATA binary")
	}

	out, err = run(t, with("bench", "--archive", archive, "--iterations", "5")...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "p99")
	test.That(t, out, test.ShouldContainSubstring, "of 5 configurations")
}

func TestLogFile(t *testing.T) {
	dir, global := writeTestFiles(t)
	logFile := filepath.Join(dir, "sdfdistance.log")
	args := append(append([]string{}, global...), "--log-file", logFile, "build", "--out", filepath.Join(dir, "robot.sdf"))
	_, err := run(t, args...)
	test.That(t, err, test.ShouldBeNil)

	data, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, `"msg":"built distance fields"`)
}

func TestCommandErrors(t *testing.T) {
	dir, global := writeTestFiles(t)
	with := func(args ...string) []string {
		return append(append([]string{}, global...), args...)
	}

	_, err := run(t, with("exact", "--joint", "shoulder")...)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "NAME=VALUE")

	_, err = run(t, with("exact", "--joint", "elbow=1")...)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = run(t, with("exact", "--group", "missing")...)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = run(t, with("query", "--archive", filepath.Join(dir, "missing.sdf"))...)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.sdf")

	_, err = run(t, with("bench", "--iterations", "0")...)
	test.That(t, err, test.ShouldNotBeNil)

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{"voxel": 1}`), 0o600), test.ShouldBeNil)
	_, err = run(t, "sdfdistance", "--urdf", filepath.Join(dir, "robot.urdf"), "--config", bad, "spheres")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad.json")
}

func TestParseJoints(t *testing.T) {
	inputs, err := parseJoints([]string{"a=1.5", "b=-2"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inputs, test.ShouldResemble, map[string]float64{"a": 1.5, "b": -2})

	_, err = parseJoints([]string{"=1"})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseJoints([]string{"a=x"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	distancefield.NewMetrics(reg)
	ts := httptest.NewServer(metricsRouter(reg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Body.Close(), test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)

	resp, err = http.Get(ts.URL + "/metrics")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(body), test.ShouldContainSubstring, "distancefield_sphere_fit_attempts_total")
}
