// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package pointers

import "time"

// SafeFloat64 returns the value from ptr or 0 if the pointer is nil
func SafeFloat64(ptr *float64) float64 {
	if ptr != nil {
		return *ptr
	}
	return 0
}

// SafeString returns the value from ptr or "" if the pointer is nil
func SafeString(ptr *string) string {
	if ptr != nil {
		return *ptr
	}
	return ""
}

// SafeTime returns the value from t or time.Time{} if the pointer is nil
func SafeTime(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Time{}
}

// StringPtr returns a pointer to the string passed as parameter
func StringPtr(str string) *string {
	return &str
}

// Float64Ptr returns a pointer to the float passed as parameter
func Float64Ptr(f float64) *float64 {
	return &f
}

// Int64Ptr returns a pointer to the int passed as parameter
func Int64Ptr(d int64) *int64 {
	return &d
}

// TimePtr returns a pointer to a t
func TimePtr(t time.Time) *time.Time {
	return &t
}
