package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MetaMap map[string]interface{}
type DocumentMap map[string]interface{}

type CountResponse struct {
	Count int64 `json:"count"`
}

type BulkResponse struct {
	Errors bool                          `json:"errors"`
	Items  []map[string]BulkResponseItem `json:"items"`
}

type BulkResponseItem struct {
	Id     string                 `json:"_id"`
	Status int                    `json:"status"`
	Error  map[string]interface{} `json:"error,omitempty"`
}

func (r BulkResponse) firstError() string {
	for _, item := range r.Items {
		for action, result := range item {
			if result.Error != nil {
				return fmt.Sprintf("%s of %s failed with status %d: %v", action, result.Id, result.Status, result.Error["reason"])
			}
		}
	}
	return "unknown item failure"
}

// ToMetaAndDataMap splits documents into bulk metadata and bodies. A top-level "_id" field
// moves into the metadata so re-indexing replaces the earlier document.
func ToMetaAndDataMap[T any](values []T) ([]MetaMap, []DocumentMap, error) {
	dataMap := make([]DocumentMap, len(values))
	metaMap := make([]MetaMap, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal value to JSON: %w", err)
		}
		var mapStruct map[string]interface{}
		if err := json.Unmarshal(data, &mapStruct); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal JSON to map: %w", err)
		}

		if id, ok := mapStruct["_id"]; ok {
			delete(mapStruct, "_id")
			metaMap[i] = MetaMap{"index": map[string]interface{}{"_id": id}}
		} else {
			metaMap[i] = MetaMap{"index": map[string]interface{}{}}
		}
		dataMap[i] = mapStruct
	}
	return metaMap, dataMap, nil
}

var ErrBulkItemFailed = errors.New("bulk index item failed")
