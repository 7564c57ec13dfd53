// Package apiclient talks to the mockup API: template saves, asset
// uploads, CSV inspection, previews and batch jobs. The editor engine
// consumes the service exclusively through this client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mockup/internal/csvkit"
	"mockup/internal/models"
	"mockup/internal/pkg/errors"
)

type Client struct {
	baseURL string
	hc      *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 2 * time.Minute},
	}
}

// ResolveAssetURL turns a server-relative asset path into an absolute
// URL. Absolute inputs pass through untouched.
func (c *Client) ResolveAssetURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// ListTemplates fetches the account's templates.
func (c *Client) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var out struct {
		Templates []models.Template `json:"templates"`
	}
	if err := c.getJSON(ctx, "/templates", &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// SaveTemplate persists the whole template and returns the stored copy.
// There is no partial-field protocol; the body replaces the template.
func (c *Client) SaveTemplate(ctx context.Context, t models.Template) (models.Template, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return models.Template{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/templates", bytes.NewReader(body))
	if err != nil {
		return models.Template{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Template models.Template `json:"template"`
	}
	if err := c.do(req, &out); err != nil {
		return models.Template{}, err
	}
	return out.Template, nil
}

// UploadImage uploads a new base image and returns its asset path.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var out struct {
		Path string `json:"path"`
	}
	err := c.postMultipart(ctx, "/templates/upload-image", &out, func(w *multipart.Writer) error {
		fw, err := w.CreateFormFile("image", filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, r)
		return err
	})
	return out.Path, err
}

// UploadMask uploads the serialized mask raster.
func (c *Client) UploadMask(ctx context.Context, pngData []byte) (models.Mask, error) {
	var out models.Mask
	err := c.postMultipart(ctx, "/templates/upload-mask", &out, func(w *multipart.Writer) error {
		fw, err := w.CreateFormFile("mask", "mask.png")
		if err != nil {
			return err
		}
		_, err = fw.Write(pngData)
		return err
	})
	return out, err
}

// InspectCSV asks the service for headers and sample rows.
func (c *Client) InspectCSV(ctx context.Context, filename string, r io.Reader, sampleSize int) (csvkit.Inspection, error) {
	var out csvkit.Inspection
	err := c.postMultipart(ctx, "/csv/inspect", &out, func(w *multipart.Writer) error {
		if err := w.WriteField("sample_size", strconv.Itoa(sampleSize)); err != nil {
			return err
		}
		fw, err := w.CreateFormFile("csv_file", filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, r)
		return err
	})
	return out, err
}

// Preview renders up to limit sample rows and returns the previews,
// which replace any earlier set wholesale.
func (c *Client) Preview(ctx context.Context, templateID string, mapping map[string]string, limit int, csvName string, csv io.Reader) ([]models.PreviewItem, error) {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, err
	}

	var out struct {
		Previews []models.PreviewItem `json:"previews"`
	}
	err = c.postMultipart(ctx, "/preview", &out, func(w *multipart.Writer) error {
		if err := w.WriteField("template_id", templateID); err != nil {
			return err
		}
		if err := w.WriteField("mapping", string(mappingJSON)); err != nil {
			return err
		}
		if err := w.WriteField("limit", strconv.Itoa(limit)); err != nil {
			return err
		}
		fw, err := w.CreateFormFile("csv_file", csvName)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, csv)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out.Previews, nil
}

// BatchRequest carries everything a batch submission needs.
type BatchRequest struct {
	TemplateID       string
	Mapping          map[string]string
	CSVName          string
	CSV              io.Reader
	SkipProcessed    bool
	IdentifierColumn string
}

// StartBatch submits a batch job and returns its id.
func (c *Client) StartBatch(ctx context.Context, br BatchRequest) (string, error) {
	mappingJSON, err := json.Marshal(br.Mapping)
	if err != nil {
		return "", err
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	err = c.postMultipart(ctx, "/batch", &out, func(w *multipart.Writer) error {
		if err := w.WriteField("template_id", br.TemplateID); err != nil {
			return err
		}
		if err := w.WriteField("mapping", string(mappingJSON)); err != nil {
			return err
		}
		if err := w.WriteField("skip_processed", strconv.FormatBool(br.SkipProcessed)); err != nil {
			return err
		}
		if err := w.WriteField("identifier_column", br.IdentifierColumn); err != nil {
			return err
		}
		fw, err := w.CreateFormFile("csv_file", br.CSVName)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, br.CSV)
		return err
	})
	return out.JobID, err
}

// GetJob polls job status.
func (c *Client) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	var out models.Job
	if err := c.getJSON(ctx, "/jobs/"+jobID, &out); err != nil {
		return models.Job{}, err
	}
	return out, nil
}

// DownloadResultCSV streams the job's result CSV. The caller closes the
// reader.
func (c *Client) DownloadResultCSV(ctx context.Context, jobID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID+"/csv", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "apiclient.download", "request failed")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		return nil, decodeError(res)
	}
	return res.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postMultipart(ctx context.Context, path string, out any, fill func(*multipart.Writer) error) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := fill(w); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.hc.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "apiclient.do", "request failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// decodeError maps the service's error envelope onto a coded error; a
// body that is not an envelope falls back to the HTTP status.
func decodeError(res *http.Response) error {
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err == nil && env.Error.Code != "" {
		return errors.New(errors.Code(env.Error.Code), env.Error.Message)
	}
	return errors.Newf(errors.CodeInternal, "http %d from %s", res.StatusCode, res.Request.URL.Path)
}
