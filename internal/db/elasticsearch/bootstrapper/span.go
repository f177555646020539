package bootstrapper

const SpanIndexName = "span_tree_spans"

var spanIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 1,
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type": "keyword",
			},
			"span_id": map[string]interface{}{
				"type": "keyword",
			},
			"parent_span_id": map[string]interface{}{
				"type": "keyword",
			},
			"name": map[string]interface{}{
				"type": "keyword",
			},
			"level": map[string]interface{}{
				"type": "keyword",
			},
			"location": map[string]interface{}{
				"type": "keyword",
			},
			"ancestry": map[string]interface{}{
				"type": "text",
			},
			"follows": map[string]interface{}{
				"type": "keyword",
			},
			"created_at": map[string]interface{}{
				"type": "date",
			},
			"destroyed_at": map[string]interface{}{
				"type": "date",
			},
			"exported_at": map[string]interface{}{
				"type": "date",
			},
			"intervals": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"entered": map[string]interface{}{
						"type": "date",
					},
					"exited": map[string]interface{}{
						"type": "date",
					},
				},
			},
			"events": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"time": map[string]interface{}{
						"type": "date",
					},
					"callsite": map[string]interface{}{
						"type": "keyword",
					},
					"fields": map[string]interface{}{
						"type": "flattened",
					},
				},
			},
		},
	},
}
