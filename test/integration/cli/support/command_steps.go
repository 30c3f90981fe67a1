package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/homowarp/cmd/homowarp/cmd"
	"github.com/cucumber/godog"
)

// iRunCommand executes a homowarp command line in-process and stores the
// combined output.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] != "homowarp" {
		return fmt.Errorf("unsupported command %q", parts[0])
	}

	root := cmd.NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(parts[1:])

	start := time.Now()
	err := root.Execute()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = buf.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substituteCommandVariables(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies the output lacks specific text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// outputJSON decodes the first JSON object in the output.
func (testCtx *TestContext) outputJSON() (map[string]any, error) {
	output := strings.TrimSpace(testCtx.LastOutput)
	start := strings.IndexByte(output, '{')
	if start == -1 {
		return nil, fmt.Errorf("no JSON found in output: %s", testCtx.LastOutput)
	}

	var data map[string]any
	dec := json.NewDecoder(strings.NewReader(output[start:]))
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, output)
	}
	return data, nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.outputJSON()
	return err
}

// theJSONShouldContain verifies a top-level field of the JSON output.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	if _, ok := data[field]; !ok {
		return fmt.Errorf("field '%s' not found in JSON", field)
	}
	return nil
}

// theMatrixEntryShouldBe checks entry (row, col) of the JSON "matrix" field.
func (testCtx *TestContext) theMatrixEntryShouldBe(row, col int, want float64) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	rows, ok := data["matrix"].([]any)
	if !ok || row >= len(rows) {
		return fmt.Errorf("matrix has no row %d: %v", row, data["matrix"])
	}
	cols, ok := rows[row].([]any)
	if !ok || col >= len(cols) {
		return fmt.Errorf("matrix row %d has no column %d: %v", row, col, rows[row])
	}
	got, _ := cols[col].(float64)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("matrix[%d][%d] = %g, want %g", row, col, got, want)
	}
	return nil
}

// theErrorShouldMention verifies the error message contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	full := testCtx.LastOutput + " " + testCtx.LastError.Error()
	if !strings.Contains(strings.ToLower(full), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, full)
	}
	return nil
}

// theFileShouldExist checks a file in the scenario directory.
func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

// theFileShouldContain checks the contents of a file in the scenario directory.
func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'", name, expected)
	}
	return nil
}

// theDirectoryShouldContainFiles counts the entries of a scenario directory.
func (testCtx *TestContext) theDirectoryShouldContainFiles(name string, n int) error {
	entries, err := os.ReadDir(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", name, err)
	}
	if len(entries) != n {
		return fmt.Errorf("directory %s has %d entries, want %d", name, len(entries), n)
	}
	return nil
}

// aConfigFileWith writes a YAML configuration file into the scenario directory.
func (testCtx *TestContext) aConfigFileWith(name string, body *godog.DocString) error {
	return os.WriteFile(testCtx.Path(name), []byte(body.Content), 0o600)
}

// theEnvironmentVariableIsSetTo sets a variable for the rest of the scenario.
func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	prev, had := os.LookupEnv(name)
	if err := os.Setenv(name, value); err != nil {
		return err
	}
	testCtx.restoreEnv = append(testCtx.restoreEnv, func() {
		if had {
			_ = os.Setenv(name, prev)
		} else {
			_ = os.Unsetenv(name)
		}
	})
	return nil
}

// RegisterCommandSteps registers command execution and output steps.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the matrix entry \((\d+),(\d+)\) should be (-?[\d.]+)$`, testCtx.theMatrixEntryShouldBe)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the directory "([^"]*)" should contain (\d+) files?$`, testCtx.theDirectoryShouldContainFiles)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}
