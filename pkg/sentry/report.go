// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sentry

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
	IssueTypeFatal   IssueType = "fatal"
)

// debounceWindow limits how often errors and warnings are forwarded.
const debounceWindow = 2 * time.Hour

var (
	debounceMu   sync.Mutex
	lastSent     = map[IssueType]time.Time{}
	debounceTest bool
)

// EnableTestMode disables debouncing.
func EnableTestMode() {
	debounceMu.Lock()
	defer debounceMu.Unlock()

	debounceTest = true
}

// DisableTestMode restores debouncing.
func DisableTestMode() {
	debounceMu.Lock()
	defer debounceMu.Unlock()

	debounceTest = false
	lastSent = map[IssueType]time.Time{}
}

func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	ReportIssueWithContext(err, issueType, log, nil)
}

func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithContext reports an issue with context values attached as tags or extras.
// Fatal issues are always sent and end in a panic.
func ReportIssueWithContext(err error, issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeFatal:
		log.Errorf("Fatal error: %s", err)
		send(newEvent(sentry.LevelFatal, err, context))
		sentry.Flush(5 * time.Second)
		log.Panic("Fatal error")
	case IssueTypeError:
		log.Error(err)

		if shouldSend(issueType) {
			send(newEvent(sentry.LevelError, err, context))
		}
	case IssueTypeWarning:
		log.Warn(err)

		if shouldSend(issueType) {
			send(newEvent(sentry.LevelWarning, err, context))
		}
	}
}

func shouldSend(issueType IssueType) bool {
	debounceMu.Lock()
	defer debounceMu.Unlock()

	if debounceTest {
		return true
	}

	if time.Since(lastSent[issueType]) < debounceWindow {
		return false
	}

	lastSent[issueType] = time.Now()

	return true
}
