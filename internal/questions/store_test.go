package questions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

func TestLoadAnswersMissingFile(t *testing.T) {
	t.Parallel()

	answers, err := LoadAnswers(filepath.Join(t.TempDir(), "terraform.tfvars.json"))
	require.NoError(t, err)
	require.Empty(t, answers)
}

func TestWriteAnswersMergesSections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "configure", "terraform.tfvars.json")
	require.NoError(t, WriteAnswers(path, Answers{"a": map[string]any{"x": 1}}))
	require.NoError(t, WriteAnswers(path, Answers{"b": map[string]any{"y": 2}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, map[string]any{
		"a": map[string]any{"x": float64(1)},
		"b": map[string]any{"y": float64(2)},
	}, got)
}

func TestWriteAnswersMergesKeysWithinSection(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "terraform.tfvars.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user":{"username":"demo","region":"RegionOne"},"other":"kept"}`), 0o644))

	require.NoError(t, WriteAnswers(path, Answers{"user": map[string]any{"username": "admin"}}))

	answers, err := LoadAnswers(path)
	require.NoError(t, err)
	require.Equal(t, "kept", answers["other"])
	require.Equal(t, "admin", answers.Section("user")["username"])
	require.Equal(t, "RegionOne", answers.Section("user")["region"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, AnswersFileMode, info.Mode().Perm())
}

func TestLoadAnswersRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "terraform.tfvars.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := LoadAnswers(path)
	var parseErr *sunbeamerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, path, parseErr.Path)
}

func TestAnswersSectionCreatesMissing(t *testing.T) {
	t.Parallel()

	answers := Answers{}
	answers.Section("external_network")["cidr"] = "10.20.20.0/24"
	require.Equal(t, "10.20.20.0/24", answers.Section("external_network")["cidr"])
}

func TestReadPreseed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preseed.yaml")
	content := strings.Join([]string{
		"user:",
		"  username: admin",
		"  security_group_rules: false",
		"external_network:",
		"  cidr: 172.16.0.0/24",
		"  segmentation_id: 101",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	preseed, err := ReadPreseed(path)
	require.NoError(t, err)
	require.Equal(t, "admin", SectionOf(preseed, "user")["username"])
	require.Equal(t, false, SectionOf(preseed, "user")["security_group_rules"])
	require.Equal(t, 101, SectionOf(preseed, "external_network")["segmentation_id"])
	require.Nil(t, SectionOf(preseed, "missing"))
}

func TestReadPreseedErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := ReadPreseed(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)

	path := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))
	_, err = ReadPreseed(path)
	var parseErr *sunbeamerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, 1, parseErr.Line)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	preseed, err := ReadPreseed(empty)
	require.NoError(t, err)
	require.Empty(t, preseed)
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	first := GeneratePassword(DefaultPasswordLength)
	second := GeneratePassword(0)
	require.Len(t, first, DefaultPasswordLength)
	require.Len(t, second, DefaultPasswordLength)
	require.NotEqual(t, first, second)
	for _, r := range first {
		require.True(t, strings.ContainsRune(passwordAlphabet, r))
	}
	require.IsType(t, "", PasswordDefault())
}
