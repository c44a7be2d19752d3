package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const freestyleConfigXML = `<?xml version='1.1' encoding='UTF-8'?>
<project>
  <actions/>
  <description>Nightly deployment</description>
  <properties>
    <hudson.model.ParametersDefinitionProperty>
      <parameterDefinitions>
        <hudson.model.StringParameterDefinition>
          <name>TARGET_ENV</name>
          <description>Deployment environment</description>
          <defaultValue>staging</defaultValue>
          <trim>true</trim>
        </hudson.model.StringParameterDefinition>
        <hudson.model.BooleanParameterDefinition>
          <name>DRY_RUN</name>
          <description/>
          <defaultValue>false</defaultValue>
        </hudson.model.BooleanParameterDefinition>
        <hudson.model.ChoiceParameterDefinition>
          <name>REGION</name>
          <description>Target region</description>
          <choices class="java.util.Arrays$ArrayList">
            <a class="string-array">
              <string>us-east-1</string>
              <string>eu-west-1</string>
            </a>
          </choices>
        </hudson.model.ChoiceParameterDefinition>
      </parameterDefinitions>
    </hudson.model.ParametersDefinitionProperty>
  </properties>
  <builders/>
  <publishers/>
</project>
`

const pipelineConfigXML = `<?xml version='1.1' encoding='UTF-8'?>
<flow-definition plugin="workflow-job@1316.vd2290d3341a_f">
  <actions/>
  <description/>
  <properties>
    <org.jenkinsci.plugins.workflow.job.properties.DisableConcurrentBuildsJobProperty/>
    <hudson.model.ParametersDefinitionProperty>
      <parameterDefinitions>
        <net.uaznia.lukanus.hudson.plugins.gitparameter.GitParameterDefinition plugin="git-parameter@0.9.18">
          <name>BRANCH</name>
          <description>Branch to build</description>
          <defaultValue>origin/main</defaultValue>
        </net.uaznia.lukanus.hudson.plugins.gitparameter.GitParameterDefinition>
        <hudson.model.ChoiceParameterDefinition>
          <name>MODE</name>
          <description/>
          <choices>
            <string>fast</string>
            <string>full</string>
          </choices>
        </hudson.model.ChoiceParameterDefinition>
      </parameterDefinitions>
    </hudson.model.ParametersDefinitionProperty>
  </properties>
</flow-definition>
`

func TestParseParametersFreestyle(t *testing.T) {
	params, found, err := parseParameters([]byte(freestyleConfigXML))
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, params, 3)

	assert.Equal(t, "TARGET_ENV", params[0].Name)
	assert.Equal(t, "StringParameterDefinition", params[0].Type)
	assert.Equal(t, "Deployment environment", params[0].Description)
	assert.Equal(t, "staging", params[0].DefaultValue)

	assert.Equal(t, "DRY_RUN", params[1].Name)
	assert.Equal(t, "BooleanParameterDefinition", params[1].Type)
	assert.Equal(t, "false", params[1].DefaultValue)

	assert.Equal(t, "REGION", params[2].Name)
	assert.Equal(t, "ChoiceParameterDefinition", params[2].Type)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, params[2].Choices)
}

func TestParseParametersPluginTypes(t *testing.T) {
	params, found, err := parseParameters([]byte(pipelineConfigXML))
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, params, 2)

	// Plugin definition names reduce to the simple class name.
	assert.Equal(t, "GitParameterDefinition", params[0].Type)
	assert.Equal(t, "BRANCH", params[0].Name)
	assert.Equal(t, "origin/main", params[0].DefaultValue)

	// Older documents list choice strings without the <a> wrapper.
	assert.Equal(t, []string{"fast", "full"}, params[1].Choices)
}

func TestParseParametersEmptyProperty(t *testing.T) {
	configXML := `<project>
  <properties>
    <hudson.model.ParametersDefinitionProperty>
      <parameterDefinitions/>
    </hudson.model.ParametersDefinitionProperty>
  </properties>
</project>`
	params, found, err := parseParameters([]byte(configXML))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, params)
}

func TestParseParametersNoProperty(t *testing.T) {
	configXML := `<project>
  <properties/>
  <builders/>
</project>`
	params, found, err := parseParameters([]byte(configXML))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, params)
}

func TestParseParametersMalformed(t *testing.T) {
	_, _, err := parseParameters([]byte(`<project><properties><unclosed`))
	assert.Error(t, err)
}

func TestParameterTypeName(t *testing.T) {
	assert.Equal(t, "StringParameterDefinition", parameterTypeName("hudson.model.StringParameterDefinition"))
	assert.Equal(t, "GitParameterDefinition", parameterTypeName("net.uaznia.lukanus.hudson.plugins.gitparameter.GitParameterDefinition"))
	assert.Equal(t, "CustomParameter", parameterTypeName("CustomParameter"))
}
