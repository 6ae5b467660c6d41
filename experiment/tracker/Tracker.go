// Package tracker implements trackers, which record per-episode data
// in an experiment and save it after the experiment has finished
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Interface Tracker keeps track of experiment data and saves the data
// after the experiment has finished
type Tracker interface {
	Track(r Record)
	Save() error
}

// SaveRecords saves records to filename in gob format
func SaveRecords(filename string, records []Record) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("saveRecords: could not open save file: %v", err)
	}
	defer file.Close()

	enc := gob.NewEncoder(file)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("saveRecords: could not encode records: %v", err)
	}
	return nil
}

// LoadRecords loads and returns the records saved by a Tracker
func LoadRecords(filename string) ([]Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadRecords: could not open data file: %v",
			err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("loadRecords: could not decode data: %v", err)
	}

	return records, nil
}
