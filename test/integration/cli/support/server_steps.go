package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/server"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// serverDefaults maps a 4x4 box onto 2x2 when a request carries no points.
var serverDefaults = homography.Correspondences{
	Src: [4]homography.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}},
	Dst: [4]homography.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}},
}

func (testCtx *TestContext) startServer(cfg server.Config) error {
	testCtx.StopServer()
	srv := server.NewServer(cfg)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPTestServer = httptest.NewServer(mux)
	return nil
}

// theServerIsRunning starts an in-process server with test defaults.
func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(server.Config{
		CORSOrigin:    "*",
		MaxUploadMB:   1,
		TimeoutSec:    10,
		DefaultPoints: serverDefaults,
		Workers:       2,
	})
}

// theServerIsRunningWithRateLimit starts a server allowing n requests a minute.
func (testCtx *TestContext) theServerIsRunningWithRateLimit(n int) error {
	return testCtx.startServer(server.Config{
		CORSOrigin:    "*",
		MaxUploadMB:   1,
		TimeoutSec:    10,
		DefaultPoints: serverDefaults,
		RateLimit:     server.RateLimitConfig{Enabled: true, RequestsPerMinute: n, RequestsPerHour: n},
	})
}

func (testCtx *TestContext) do(req *http.Request) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	client := testCtx.HTTPTestServer.Client()
	client.Timeout = 30 * time.Second
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = body
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(context.Background(), method, testCtx.HTTPTestServer.URL+path, body)
}

// iGet sends a GET request.
func (testCtx *TestContext) iGet(path string) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	req, err := testCtx.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iPostJSON sends a JSON body.
func (testCtx *TestContext) iPostJSON(path string, body *godog.DocString) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	req, err := testCtx.newRequest(http.MethodPost, path, strings.NewReader(body.Content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

// iUploadForWarping posts an image file with the given form fields, written
// as "key=value" pairs separated by spaces.
func (testCtx *TestContext) iUploadForWarping(name, fields string) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for _, kv := range strings.Fields(fields) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("form field %q is not key=value", kv)
		}
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := testCtx.newRequest(http.MethodPost, "/warp", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testCtx.do(req)
}

// iUpload posts an image file with no extra form fields.
func (testCtx *TestContext) iUpload(name string) error {
	return testCtx.iUploadForWarping(name, "")
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	got, ok := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if !ok {
		return fmt.Errorf("header %s missing", name)
	}
	if value != "" && got != value {
		return fmt.Errorf("header %s = %q, want %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldHaveHeader(name string) error {
	return testCtx.theResponseHeaderShouldBe(name, "")
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !bytes.Contains(testCtx.LastHTTPResponse, []byte(text)) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseMatrixEntryShouldBe checks the row-major "matrix" of a JSON response.
func (testCtx *TestContext) theResponseMatrixEntryShouldBe(index int, want float64) error {
	var resp server.EstimateResponse
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &resp); err != nil {
		return fmt.Errorf("response is not JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	if index >= len(resp.Matrix) {
		return fmt.Errorf("matrix has %d entries", len(resp.Matrix))
	}
	if diff := resp.Matrix[index] - want; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("matrix[%d] = %g, want %g", index, resp.Matrix[index], want)
	}
	return nil
}

func (testCtx *TestContext) responseImage() (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(testCtx.LastHTTPResponse))
	if err != nil {
		return nil, fmt.Errorf("response is not an image: %w", err)
	}
	return img, nil
}

func (testCtx *TestContext) theResponseImageShouldBe(width, height int) error {
	img, err := testCtx.responseImage()
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("response image is %dx%d, want %dx%d", b.Dx(), b.Dy(), width, height)
	}
	return nil
}

func (testCtx *TestContext) theResponsePixelShouldBe(x, y int, hex string) error {
	img, err := testCtx.responseImage()
	if err != nil {
		return err
	}
	want, err := parseHex(hex)
	if err != nil {
		return err
	}
	return checkPixel(img, x, y, want)
}

// iSaveTheResponseAs writes the last response body into the scenario directory.
func (testCtx *TestContext) iSaveTheResponseAs(name string) error {
	if !utils.IsSupportedImage(name) {
		return fmt.Errorf("unsupported image name %s", name)
	}
	return os.WriteFile(testCtx.Path(name), testCtx.LastHTTPResponse, 0o600)
}

// RegisterServerSteps registers HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with a limit of (\d+) requests? per minute$`, testCtx.theServerIsRunningWithRateLimit)
	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGet)
	sc.Step(`^I POST to "([^"]*)" with JSON:$`, testCtx.iPostJSON)
	sc.Step(`^I upload "([^"]*)" for warping with "([^"]*)"$`, testCtx.iUploadForWarping)
	sc.Step(`^I upload "([^"]*)" for warping$`, testCtx.iUpload)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should have header "([^"]*)"$`, testCtx.theResponseShouldHaveHeader)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response matrix entry (\d+) should be (-?[\d.]+)$`, testCtx.theResponseMatrixEntryShouldBe)
	sc.Step(`^the response image should be (\d+)x(\d+)$`, testCtx.theResponseImageShouldBe)
	sc.Step(`^the response pixel at (\d+),(\d+) should be "([^"]*)"$`, testCtx.theResponsePixelShouldBe)
	sc.Step(`^I save the response as "([^"]*)"$`, testCtx.iSaveTheResponseAs)
}
