package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterSteps wires the step definitions onto the scenario context.
func (c *TestContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a running parse server$`, c.aRunningParseServer)
	sc.Step(`^I request the health endpoint$`, c.iRequestTheHealthEndpoint)
	sc.Step(`^I upload a markdown document containing "([^"]*)"$`, c.iUploadAMarkdownDocument)
	sc.Step(`^I upload a docx document with a paragraph "([^"]*)" and a 2x2 table$`, c.iUploadADocxDocument)
	sc.Step(`^I upload a pptx document with a picture$`, c.iUploadAPptxDocument)
	sc.Step(`^I upload a pptx document with a picture and OCR disabled$`, c.iUploadAPptxDocumentNoOCR)
	sc.Step(`^I upload a file named "([^"]*)"$`, c.iUploadAFileNamed)
	sc.Step(`^I post the parse endpoint without a file$`, c.iPostWithoutAFile)
	sc.Step(`^the response status is (\d+)$`, c.theResponseStatusIs)
	sc.Step(`^the health status is "([^"]*)"$`, c.theHealthStatusIs)
	sc.Step(`^the parsed content contains "([^"]*)"$`, c.theParsedContentContains)
	sc.Step(`^the parsed content does not contain "([^"]*)"$`, c.theParsedContentDoesNotContain)
	sc.Step(`^the metadata counter "([^"]*)" is (\d+)$`, c.theMetadataCounterIs)
	sc.Step(`^the error message contains "([^"]*)"$`, c.theErrorMessageContains)
}

func (c *TestContext) aRunningParseServer() error {
	return c.startServer()
}

func (c *TestContext) iRequestTheHealthEndpoint() error {
	resp, err := http.Get(c.httpServer.URL + "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.recordResponse(resp)
}

func (c *TestContext) iUploadAMarkdownDocument(content string) error {
	// Feature files write newlines as literal \n.
	content = strings.ReplaceAll(content, `\n`, "\n")
	return c.upload("notes.md", []byte(content), nil)
}

func (c *TestContext) iUploadADocxDocument(paragraph string) error {
	data, err := buildDocxWithTable(paragraph)
	if err != nil {
		return err
	}
	return c.upload("report.docx", data, nil)
}

func (c *TestContext) iUploadAPptxDocument() error {
	data, err := buildPptxWithPicture()
	if err != nil {
		return err
	}
	return c.upload("deck.pptx", data, nil)
}

func (c *TestContext) iUploadAPptxDocumentNoOCR() error {
	data, err := buildPptxWithPicture()
	if err != nil {
		return err
	}
	return c.upload("deck.pptx", data, map[string]string{"enable_ocr": "false"})
}

func (c *TestContext) iUploadAFileNamed(name string) error {
	return c.upload(name, []byte("placeholder"), nil)
}

func (c *TestContext) iPostWithoutAFile() error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("language", "en"); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := http.Post(c.httpServer.URL+"/v1/parse", w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.recordResponse(resp)
}

func (c *TestContext) upload(fileName string, data []byte, fields map[string]string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := http.Post(c.httpServer.URL+"/v1/parse", w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return c.recordResponse(resp)
}

// recordResponse captures status, content, error, and numeric metadata
// counters from a JSON response body.
func (c *TestContext) recordResponse(resp *http.Response) error {
	c.lastStatus = resp.StatusCode
	c.lastContent = ""
	c.lastError = ""
	c.lastMetadata = map[string]float64{}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var body struct {
		Content  string             `json:"content"`
		Status   string             `json:"status"`
		Error    string             `json:"error"`
		Metadata map[string]float64 `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	c.lastContent = body.Content
	c.lastError = body.Error
	if body.Status != "" {
		// Health responses carry a status field instead of content.
		c.lastContent = body.Status
	}
	if body.Metadata != nil {
		c.lastMetadata = body.Metadata
	}
	return nil
}

func (c *TestContext) theResponseStatusIs(expected int) error {
	if c.lastStatus != expected {
		return fmt.Errorf("expected status %d, got %d (error: %s)", expected, c.lastStatus, c.lastError)
	}
	return nil
}

func (c *TestContext) theHealthStatusIs(expected string) error {
	if c.lastContent != expected {
		return fmt.Errorf("expected health status %q, got %q", expected, c.lastContent)
	}
	return nil
}

func (c *TestContext) theParsedContentContains(expected string) error {
	if !strings.Contains(c.lastContent, expected) {
		return fmt.Errorf("content does not contain %q:\n%s", expected, c.lastContent)
	}
	return nil
}

func (c *TestContext) theParsedContentDoesNotContain(unexpected string) error {
	if strings.Contains(c.lastContent, unexpected) {
		return fmt.Errorf("content unexpectedly contains %q:\n%s", unexpected, c.lastContent)
	}
	return nil
}

func (c *TestContext) theMetadataCounterIs(name string, expected int) error {
	got, ok := c.lastMetadata[name]
	if !ok {
		return fmt.Errorf("metadata has no counter %q", name)
	}
	if int(got) != expected {
		return fmt.Errorf("expected %s == %d, got %v", name, expected, got)
	}
	return nil
}

func (c *TestContext) theErrorMessageContains(expected string) error {
	if !strings.Contains(c.lastError, expected) {
		return fmt.Errorf("error %q does not contain %q", c.lastError, expected)
	}
	return nil
}
