// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/juju/errors"
	"github.com/xeipuuv/gojsonschema"
)

const schemaDraft = "http://json-schema.org/draft-07/schema#"

var manifestSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	data, err := ManifestSchema()
	if err != nil {
		return nil, errors.Trace(err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	return schema, errors.Trace(err)
})

// ManifestSchema returns the JSON schema of manifest files.
func ManifestSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Manifest{})
	schema.Version = schemaDraft
	data, err := json.MarshalIndent(schema, "", "  ")
	return data, errors.Trace(err)
}

func validateManifest(data []byte) error {
	schema, err := manifestSchema()
	if err != nil {
		return errors.Trace(err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Trace(err)
	}
	if !result.Valid() {
		var strErrors []string
		for _, e := range result.Errors() {
			strErrors = append(strErrors, e.String())
		}
		return errors.NotValidf("manifest (%s)", strings.Join(strErrors, "; "))
	}
	return nil
}
