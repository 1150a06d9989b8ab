// errors.go
//
// Plant Tracer object and record store
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of odb.
// odb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// odb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with odb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned when a create violates a uniqueness constraint.
	ErrAlreadyExists = errors.New("already exists")

	// ErrHasOutstandingResources is returned when a delete is blocked by dependent records.
	ErrHasOutstandingResources = errors.New("has outstanding resources")

	// ErrInvalidAPIKey is returned for unknown, revoked or disabled API keys.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrUnknownUser is returned when a user lookup that must succeed does not.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnknownCourse is returned when an operation names a course that does not exist.
	ErrUnknownCourse = errors.New("unknown course")

	// ErrUnknownMovie is returned when an update names a movie that does not exist.
	ErrUnknownMovie = errors.New("unknown movie")

	// ErrCourseFull is returned when enrolling would exceed a course's max_enrollment.
	ErrCourseFull = errors.New("course is full")

	// ErrInvalidArgument is returned for malformed requests and failed field validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrVersionConflict is returned when a conditional write loses to a concurrent writer.
	ErrVersionConflict = errors.New("E_VERSION")
)

// AlreadyExistsError names the resource and key that collided.
type AlreadyExistsError struct {
	Resource string
	Key      string
}

func (e *AlreadyExistsError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s already exists", e.Resource)
	}
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Key)
}

// Is enables errors.Is matching against ErrAlreadyExists.
func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// OutstandingResourcesError reports the kind and number of records blocking a delete.
type OutstandingResourcesError struct {
	Resource string
	Count    int
}

func (e *OutstandingResourcesError) Error() string {
	return fmt.Sprintf("has outstanding resources: %d %s", e.Count, e.Resource)
}

// Is enables errors.Is matching against ErrHasOutstandingResources.
func (e *OutstandingResourcesError) Is(target error) bool {
	return target == ErrHasOutstandingResources
}
