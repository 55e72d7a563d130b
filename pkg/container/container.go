package container

import (
	"os"
	"strings"
)

// IsContainerised reports whether the process looks like it runs inside a
// container: a /.dockerenv file, a container cgroup or a kubernetes pod
func IsContainerised() bool {
	return hasDockerEnvFile() || isInContainerCGroup("/proc/1/cgroup") || isInKubernetesPod()
}

func hasDockerEnvFile() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

func isInContainerCGroup(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	content := string(data)
	for _, marker := range []string{"docker", "containerd", "kubepods", "libpod"} {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

func isInKubernetesPod() bool {
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}
