package naming

import (
	"k8s.io/apimachinery/pkg/util/rand"
)

// suffixLen is the length of the random suffix.
const suffixLen = 5

// DriftRenameSuffix is appended to a host's name between the two analyses
// of a drift check.
const DriftRenameSuffix = "_tmp_drift_rename"

// Random returns prefix followed by five random lowercase alphanumerics.
func Random(prefix string) string {
	return prefix + rand.String(suffixLen)
}

func ArbitrationRule() string {
	return "test admin rule " + Random("")
}

func EditedArbitrationRule() string {
	return "new test admin rule " + Random("")
}

// ArbitrationSetting returns the name and display name of a setting; both
// share one suffix.
func ArbitrationSetting() (name, displayName string) {
	uniq := Random("")
	return "test_settings_" + uniq, "Test Settings " + uniq
}

func DialogLabel() string {
	return Random("label_")
}

func Catalog() string {
	return Random("cat_")
}

func VM() string {
	return Random("test-vm-")
}

func DriftRename(name string) string {
	return name + DriftRenameSuffix
}
