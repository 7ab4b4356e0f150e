package stream

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	om "github.com/cevaris/ordered_map"
	h "github.com/relloyd/songlake/helper"
	"github.com/relloyd/songlake/logger"
)

// NewRecord creates a new Record and returns it by value as we expect these records to go over
// channels by value too. Apparently passing pointers to a channel is slower than by value, but I wonder if this
// is true when maps are pointers anyway.
// https://stackoverflow.com/questions/41178729/why-passing-pointers-to-channel-is-slower
// https://segment.com/blog/allocation-efficiency-in-high-performance-go-services/
func NewRecord() Record {
	return Record{
		data: make(map[string]interface{}),
	}
}

func NewNilRecord() Record {
	return Record{}
}

func (sr Record) RecordIsNil() bool {
	if len(sr.data) == 0 && // if the internal map has not been initialised...
		sr.data == nil {
		return true // the Record is nil.
	} else {
		return false // the Record contains stuff.
	}
}

// Record is used to communicate data between components.
type Record struct {
	data map[string]interface{} // raw data values, which can represent null JSON values as nil interfaces.
}

func (sr Record) SetData(name string, value interface{}) {
	sr.data[name] = value
}

func (sr Record) GetData(name string) interface{} {
	val, ok := sr.data[name]
	if !ok {
		panic(fmt.Sprintf("Invalid key name %q supplied while trying to fetch value from record: %v", name, sr.data))
	}
	return val
}

// GetDataOk fetches the value for name without the panic on absence that GetData carries.
// Use this on fields that are legitimately optional in the source data.
func (sr Record) GetDataOk(name string) (interface{}, bool) {
	val, ok := sr.data[name]
	return val, ok
}

func (sr Record) GetDataMap() map[string]interface{} {
	return sr.data
}

// GetDataAsStringUseUtcTime will convert interface{} value to a string for the purposes of gt/lt comparison.
// Times will be converted to UTC for string comparison!
func (sr Record) GetDataAsStringUseUtcTime(log logger.Logger, name string) (retval string) {
	return sr.getStringFromInterface(log, name, true)
}

// GetDataAsStringPreserveTimeZone will convert interface{} value to a string.
// Times will be in local time.
func (sr Record) GetDataAsStringPreserveTimeZone(log logger.Logger, name string) (retval string) {
	return sr.getStringFromInterface(log, name, false)
}

// getStringFromInterface will convert interface{} value to a string.
// Optionally return Times in UTC.
func (sr Record) getStringFromInterface(log logger.Logger, name string, useUTC bool) (retval string) {
	v, ok := sr.data[name]
	if !ok {
		panic(fmt.Sprintf("unexpected field %q does not exist in the input stream (bad pipe definition?)", name))
	}
	return h.GetStringFromInterface(log, v, useUTC)
}

// GetDataAsInt64 fetches the named field coerced to int64.
// The second return value is false when the field is absent, nil or not a whole number -
// callers treat that as a data-quality condition, not a programming error.
func (sr Record) GetDataAsInt64(name string) (int64, bool) {
	v, ok := sr.data[name]
	if !ok || v == nil {
		return 0, false
	}
	return h.Int64FromInterface(v)
}

// GetDataAsFloat64 fetches the named field coerced to float64.
// The second return value is false when the field is absent, nil or non-numeric.
func (sr Record) GetDataAsFloat64(name string) (float64, bool) {
	v, ok := sr.data[name]
	if !ok || v == nil {
		return 0, false
	}
	return h.Float64FromInterface(v)
}

func (sr Record) GetDataAsStringSlice(log logger.Logger) []string {
	retval := make([]string, 0) // no max capacity so this allows the caller to reuse keys multiple times.
	for k := range sr.data {
		retval = append(retval, sr.GetDataAsStringPreserveTimeZone(log, k))
	}
	return retval
}

// GetDataKeysAsSlice builds a slice of strings containing the values found in sr.data for each of the supplied
// keys in slice keys.
func (sr Record) GetDataKeysAsSlice(log logger.Logger, keys []string) []string {
	retval := make([]string, 0) // no max capacity so this allows the caller to reuse keys multiple times.
	for _, k := range keys {
		retval = append(retval, sr.GetDataAsStringPreserveTimeZone(log, k))
	}
	return retval
}

func (sr Record) GetDataLen() int {
	return len(sr.data)
}

// GetSortedDataMapKeys will return a slice of the keys found in map sr.data.
func (sr Record) GetSortedDataMapKeys() []string {
	retval := make([]string, 0)
	for k := range sr.data {
		retval = append(retval, k)
	}
	// Sort the keys alphabetically.
	// TODO: get the record to be an ordered map or use multiple slices manually to preserve record order by default.
	sort.Slice(retval, func(i, j int) bool {
		return retval[i] < retval[j]
	})
	return retval
}

func (sr Record) CopyTo(t Record) {
	for k, v := range sr.data {
		t.SetData(k, v)
	}
}

// DataCanJoinByKeyFields compares two input records using key fields for equality (return 0)
// less-than (return -1) or greater-than (return 1) status where return values are:
// -1 if sr is less than targetRec
//  0 if sr matches targetRec
//  1 if sr is greater than targetRec
func (sr Record) DataCanJoinByKeyFields(log logger.Logger, targetRec Record, joinKeys *om.OrderedMap) (retval int) {
	// Compare keys and return retval.
	iter := joinKeys.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() { // for each key to compare...
		log.Trace("DataCanJoinByKeyFields() iterating with kv = ", kv)
		m1v := sr.GetDataAsStringUseUtcTime(log, h.GetStringFromInterfaceUseUtcTime(log, kv.Key)) // get the value from sr
		log.Trace("m1 value = ", m1v)
		m2v := targetRec.GetDataAsStringUseUtcTime(log, h.GetStringFromInterfaceUseUtcTime(log, kv.Value)) // get the value from targetRec
		log.Trace("m2 value = ", m2v)
		if m1v < m2v {
			retval = -1 // exit early as we have found a difference.
			break
		} else if m1v == m2v {
			retval = 0 // continue to check the next key.
		} else { // m1k > m2k
			retval = 1 // exit early as we have found a difference.
			break
		}
	}
	log.Debug("DataCanJoinByKeyFields() returning ", retval, " (0 is equal)")
	return
}

// DataIsDeepEqual compares two records for equality using reflect.DeepEqual.
// Return TRUE for equality else false.
// Specify the keys to use for the comparison in ordered dict, compareKeys.
// Example: use contents of compareKeys["X"]="Y" to check if sr["X"] == targetRec["Y"] and repeat for all of the map contents.
func (sr Record) DataIsDeepEqual(log logger.Logger, targetRec Record, compareKeys *om.OrderedMap) (retval bool) {
	iter := compareKeys.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() { // while we have more keys to compare...
		// Fetch values from the records and check they're equal.
		v1 := sr.GetDataAsStringUseUtcTime(log, h.GetStringFromInterfaceUseUtcTime(log, kv.Key))
		v2 := targetRec.GetDataAsStringUseUtcTime(log, h.GetStringFromInterfaceUseUtcTime(log, kv.Value))
		log.Debug("DataIsDeepEqual() value in sr = ", v1)
		log.Debug("DataIsDeepEqual() value in targetRec = ", v2)
		retval = reflect.DeepEqual(v1, v2)
		if !retval { // if records are NOT equal then return early!
			break
		}
	}
	log.Debug("DataIsDeepEqual() returning ", retval)
	return
}

// GetDedupKey builds a single string key from the values of the supplied field names, for use
// as a seen-set key when deduplicating on the full projected tuple. Null and absent values are
// given distinct tokens so a null field still participates in the key.
func (sr Record) GetDedupKey(log logger.Logger, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := sr.data[k]
		if !ok {
			parts = append(parts, "\x00absent")
		} else if v == nil {
			parts = append(parts, "\x00null")
		} else {
			parts = append(parts, h.GetStringFromInterface(log, v, true))
		}
	}
	return strings.Join(parts, "\x1f")
}

// GetJson returns the JSON representation of sr.data using the supplied keys to fetch the data.
func (sr Record) GetJson(log logger.Logger, keys []string) string {
	// Build a new struct containing values for the supplied keys.
	out := make([]string, len(keys), len(keys))
	for idx, key := range keys { // for each key...
		// Get the JSON representation.
		jsonValue, err := json.Marshal(sr.GetDataAsStringPreserveTimeZone(log, key))
		if err != nil {
			log.Panic("Error marshalling the value of key '", key, "' to JSON")
		}
		// Save the "key: value".
		out[idx] = fmt.Sprintf("%q: %s", key, string(jsonValue))
	}
	// Join all and return.
	return fmt.Sprintf("{%v}", strings.Join(out, ", "))
}

// MergeDataStreams will combine records from s1 into a new record, followed by s2 into the new record before
// returning it. You can supply a nil s2 to create a copy of s1 that is returned.
// If allowOverwrite is true, an error is returned if a field in s2 already exists in s1.
func MergeDataStreams(s1 Record, s2 Record, allowOverwrite bool) (Record, error) {
	retval := NewRecord()
	for k, v := range s1.GetDataMap() { // for each key:value in the 1st source...
		retval.data[k] = v // save it to the output
	}
	if !s2.RecordIsNil() { // if s2 is not empty...
		for k, v := range s2.GetDataMap() { // for each key:value in the 2nd source...
			// Check if the target key already exists and overwrite it.
			_, ok := retval.data[k]
			if ok && !allowOverwrite { // if the key already exists...
				return Record{}, fmt.Errorf("field %v exists in stream record", k)
			} else { // else update the target map...
				retval.data[k] = v // save the source key:value
			}
		}
	}
	return retval, nil
}
