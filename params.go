package main

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// parametersPropertyElement is the config.xml element holding a job's build
// parameter definitions.
const parametersPropertyElement = "hudson.model.ParametersDefinitionProperty"

type xmlParametersProperty struct {
	Definitions xmlParameterDefinitions `xml:"parameterDefinitions"`
}

type xmlParameterDefinitions struct {
	Definitions []xmlParameterDefinition `xml:",any"`
}

type xmlParameterDefinition struct {
	XMLName     xml.Name
	Name        string     `xml:"name"`
	Description string     `xml:"description"`
	Default     *string    `xml:"defaultValue"`
	Choices     xmlChoices `xml:"choices"`
}

// xmlChoices covers both serializations Jenkins uses: modern config.xml wraps
// the strings in an <a> array element, older documents list them directly.
type xmlChoices struct {
	Wrapped []string `xml:"a>string"`
	Direct  []string `xml:"string"`
}

func (c xmlChoices) values() []string {
	if len(c.Wrapped) > 0 {
		return c.Wrapped
	}
	return c.Direct
}

// parseParameters extracts build parameter definitions from a job config.xml
// document. The returned bool reports whether the document declares a
// ParametersDefinitionProperty at all, which can be true even when the
// definition list is empty. Jobs without the property yield an empty slice.
func parseParameters(configXML []byte) ([]BuildParameter, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(configXML))
	params := []BuildParameter{}
	found := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, errors.Wrap(err, "parsing config.xml")
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != parametersPropertyElement {
			continue
		}
		found = true
		var prop xmlParametersProperty
		if err := dec.DecodeElement(&prop, &start); err != nil {
			return nil, false, errors.Wrap(err, "decoding parameter definitions")
		}
		for _, def := range prop.Definitions.Definitions {
			p := BuildParameter{
				Name:        strings.TrimSpace(def.Name),
				Type:        parameterTypeName(def.XMLName.Local),
				Description: strings.TrimSpace(def.Description),
			}
			if def.Default != nil {
				p.DefaultValue = strings.TrimSpace(*def.Default)
			}
			for _, choice := range def.Choices.values() {
				p.Choices = append(p.Choices, strings.TrimSpace(choice))
			}
			params = append(params, p)
		}
	}
	return params, found, nil
}

// parameterTypeName reduces a definition element name to its simple class
// name, e.g. "hudson.model.StringParameterDefinition" becomes
// "StringParameterDefinition". This matches what the Jenkins JSON API reports
// as the parameter type.
func parameterTypeName(element string) string {
	if i := strings.LastIndexByte(element, '.'); i >= 0 {
		return element[i+1:]
	}
	return element
}
