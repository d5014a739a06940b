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

package crud

import "errors"

var (
	// ErrPrimaryWrite wraps a failed write of the requested document. It is
	// the only failure that fails a request once the pre-write hook ran.
	ErrPrimaryWrite = errors.New("primary write failed")
	// ErrInvalidDocument reports a document that cannot be written as sent.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrUnknownCollection reports a collection the registry does not know.
	ErrUnknownCollection = errors.New("unknown collection")
)
