package telemetry

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawRecord is an unvalidated upstream record. Only the run normalizer turns
// it into a domain value; nothing else should read its fields.
type RawRecord map[string]any

// Build is a read-only snapshot of an upstream build.
type Build struct {
	ID              string
	BuildNumber     string
	DefinitionName  string
	Status          string
	Result          string
	StartTime       time.Time
	FinishTime      time.Time
	PassedTestCount *int
	FailedTestCount *int
}

// Release is a read-only snapshot of an upstream release and its environments.
type Release struct {
	ID              string
	Name            string
	Status          string
	CreatedOn       time.Time
	Environments    []ReleaseEnvironment
	PassedTestCount *int
	FailedTestCount *int
}

type ReleaseEnvironment struct {
	ID     string
	Name   string
	Status string
}

// TestResult is one execution of one test case inside a run.
type TestResult struct {
	RunID         string
	TestCaseID    string
	Outcome       string
	CompletedDate time.Time
}

// Suite is one node of a test plan's suite tree. ParentID is empty for the root.
type Suite struct {
	ID       string
	Name     string
	ParentID string
}

type SuiteCase struct {
	SuiteID    string
	TestCaseID string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the upstream is known to emit and
// reports false for anything else.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string. Unparseable, negative
// and out-of-range values leave it unset so that callers can tell "missing"
// from zero.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || math.IsNaN(n) || n < 0 || n >= float64(math.MaxInt) {
		return nil
	}
	f.value = int(n)
	f.set = true
	return nil
}

func (f flexInt) ptr() *int {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

type ref struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type buildWire struct {
	ID              flexString `json:"id"`
	BuildNumber     string     `json:"buildNumber"`
	Status          string     `json:"status"`
	Result          string     `json:"result"`
	StartTime       string     `json:"startTime"`
	FinishTime      string     `json:"finishTime"`
	Definition      ref        `json:"definition"`
	PassedTestCount flexInt    `json:"passedTestCount"`
	FailedTestCount flexInt    `json:"failedTestCount"`
}

func (w buildWire) toBuild() Build {
	start, _ := ParseTime(w.StartTime)
	finish, _ := ParseTime(w.FinishTime)
	return Build{
		ID:              string(w.ID),
		BuildNumber:     w.BuildNumber,
		DefinitionName:  w.Definition.Name,
		Status:          w.Status,
		Result:          w.Result,
		StartTime:       start,
		FinishTime:      finish,
		PassedTestCount: w.PassedTestCount.ptr(),
		FailedTestCount: w.FailedTestCount.ptr(),
	}
}

type releaseEnvironmentWire struct {
	ID     flexString `json:"id"`
	Name   string     `json:"name"`
	Status string     `json:"status"`
}

type releaseWire struct {
	ID              flexString               `json:"id"`
	Name            string                   `json:"name"`
	Status          string                   `json:"status"`
	CreatedOn       string                   `json:"createdOn"`
	Environments    []releaseEnvironmentWire `json:"environments"`
	PassedTestCount flexInt                  `json:"passedTestCount"`
	FailedTestCount flexInt                  `json:"failedTestCount"`
}

func (w releaseWire) toRelease() Release {
	created, _ := ParseTime(w.CreatedOn)
	envs := make([]ReleaseEnvironment, 0, len(w.Environments))
	for _, env := range w.Environments {
		envs = append(envs, ReleaseEnvironment{ID: string(env.ID), Name: env.Name, Status: env.Status})
	}
	return Release{
		ID:              string(w.ID),
		Name:            w.Name,
		Status:          w.Status,
		CreatedOn:       created,
		Environments:    envs,
		PassedTestCount: w.PassedTestCount.ptr(),
		FailedTestCount: w.FailedTestCount.ptr(),
	}
}

type testResultWire struct {
	TestCase      ref    `json:"testCase"`
	TestRun       ref    `json:"testRun"`
	Outcome       string `json:"outcome"`
	CompletedDate string `json:"completedDate"`
}

type suiteWire struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	ParentSuite *ref       `json:"parentSuite"`
}

type suiteCaseWire struct {
	WorkItem ref `json:"workItem"`
}
