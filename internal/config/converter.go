package config

import (
	"fmt"
	"time"

	"github.com/marulkan/fluent-bit/pkg/connector"
)

// ConvertToPipeline converts parsed configuration data to a Pipeline.
// The data should have been validated against the schema first.
//
// Expected structure:
//
//	{
//	  "schemaVersion": "1.0.0",
//	  "pipeline": {
//	    "name": "...",
//	    "version": "...",
//	    "parsers": [...],
//	    "input": {...},
//	    "filters": [...],
//	    "output": {...}
//	  }
//	}
func ConvertToPipeline(data map[string]interface{}) (*connector.Pipeline, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	section, ok := data["pipeline"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline' section")
	}

	pipeline := &connector.Pipeline{CreatedAt: time.Now()}

	if pipeline.Name, ok = section["name"].(string); !ok || pipeline.Name == "" {
		return nil, fmt.Errorf("missing required field 'pipeline.name'")
	}
	pipeline.ID = pipeline.Name
	if id, okID := section["id"].(string); okID && id != "" {
		pipeline.ID = id
	}
	if pipeline.Version, ok = section["version"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'pipeline.version'")
	}
	if description, okDesc := section["description"].(string); okDesc {
		pipeline.Description = description
	}

	if rawParsers, has := section["parsers"]; has {
		list, isList := rawParsers.([]interface{})
		if !isList {
			return nil, fmt.Errorf("'pipeline.parsers' must be a list")
		}
		for i, item := range list {
			m, isMap := item.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("invalid parser at index %d", i)
			}
			def, err := convertParserDefinition(m)
			if err != nil {
				return nil, fmt.Errorf("invalid parser at index %d: %w", i, err)
			}
			pipeline.Parsers = append(pipeline.Parsers, def)
		}
	}

	inputData, ok := section["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline.input' section")
	}
	input, err := convertModuleConfig(inputData)
	if err != nil {
		return nil, fmt.Errorf("invalid input config: %w", err)
	}
	pipeline.Input = input

	if filtersData, okFilters := section["filters"].([]interface{}); okFilters {
		for i, item := range filtersData {
			m, isMap := item.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("invalid filter at index %d", i)
			}
			fc, convertErr := convertModuleConfig(m)
			if convertErr != nil {
				return nil, fmt.Errorf("invalid filter at index %d: %w", i, convertErr)
			}
			pipeline.Filters = append(pipeline.Filters, *fc)
		}
	}

	outputData, ok := section["output"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline.output' section")
	}
	output, err := convertModuleConfig(outputData)
	if err != nil {
		return nil, fmt.Errorf("invalid output config: %w", err)
	}
	pipeline.Output = output

	return pipeline, nil
}

func convertModuleConfig(data map[string]interface{}) (*connector.ModuleConfig, error) {
	moduleType, ok := data["type"].(string)
	if !ok || moduleType == "" {
		return nil, fmt.Errorf("missing required field 'type'")
	}

	mc := &connector.ModuleConfig{
		Type:   moduleType,
		Config: make(map[string]interface{}),
	}
	if raw, has := data["config"]; has && raw != nil {
		cfg, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("'config' must be an object, got %T", raw)
		}
		for k, v := range cfg {
			mc.Config[k] = v
		}
	}
	return mc, nil
}

func convertParserDefinition(data map[string]interface{}) (connector.ParserDefinition, error) {
	var def connector.ParserDefinition
	var ok bool

	if def.Name, ok = data["name"].(string); !ok || def.Name == "" {
		return def, fmt.Errorf("missing required field 'name'")
	}
	if def.Format, ok = data["format"].(string); !ok || def.Format == "" {
		return def, fmt.Errorf("missing required field 'format'")
	}
	def.Regex, _ = data["regex"].(string)
	def.Expression, _ = data["expression"].(string)
	def.Script, _ = data["script"].(string)
	def.PrefilterCaseInsensitive, _ = data["prefilterCaseInsensitive"].(bool)

	if raw, has := data["types"]; has {
		types, isMap := raw.(map[string]interface{})
		if !isMap {
			return def, fmt.Errorf("'types' must be an object")
		}
		def.Types = make(map[string]string, len(types))
		for field, v := range types {
			s, isString := v.(string)
			if !isString {
				return def, fmt.Errorf("type for field %q must be a string, got %T", field, v)
			}
			def.Types[field] = s
		}
	}

	if raw, has := data["prefilter"]; has {
		list, isList := raw.([]interface{})
		if !isList {
			return def, fmt.Errorf("'prefilter' must be a list of strings")
		}
		for i, v := range list {
			s, isString := v.(string)
			if !isString {
				return def, fmt.Errorf("'prefilter[%d]' must be a string, got %T", i, v)
			}
			def.Prefilter = append(def.Prefilter, s)
		}
	}

	return def, nil
}
