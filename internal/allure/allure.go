// Package allure holds the subset of the Allure result schema written for a run.
package allure

const StageFinished = "finished"

const (
	StatusPass   = "passed"
	StatusFail   = "failed"
	StatusSkip   = "skipped"
	StatusBroken = "broken"
)

const (
	MimeText = "text/plain"
	MimeJSON = "application/json"
)

type Test struct {
	UUID          string        `json:"uuid"`
	TestCaseID    string        `json:"testCaseId"`
	HistoryID     string        `json:"historyId"`
	Name          string        `json:"name"`
	FullName      string        `json:"fullName"`
	Description   string        `json:"description"`
	Status        string        `json:"status"`
	StatusDetails StatusDetails `json:"statusDetails"`
	Stage         string        `json:"stage"`
	Steps         []Step        `json:"steps"`
	Start         int64         `json:"start"`
	Stop          int64         `json:"stop"`
	Parameters    []Parameter   `json:"parameters"`
	Labels        []Label       `json:"labels"`
	Attachments   []Attachment  `json:"attachments"`
}

type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

type Step struct {
	Name          string        `json:"name"`
	Status        string        `json:"status"`
	StatusDetails StatusDetails `json:"statusDetails"`
	Stage         string        `json:"stage"`
	Steps         []Step        `json:"steps"`
	Attachments   []Attachment  `json:"attachments"`
	Parameters    []Parameter   `json:"parameters"`
	Start         int64         `json:"start"`
	Stop          int64         `json:"stop"`
}

type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}
