package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"mockup/internal/models"
	"mockup/internal/pkg/logger"
	"mockup/internal/ports"
	"mockup/internal/render"
)

func testLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
}

type fakeJobs struct {
	job     *models.JobRecord
	getErr  error
	rowErr  error
	running int
	done    int
	fails   int
	reason  string
}

func (f *fakeJobs) Get(_ context.Context, id string) (*models.JobRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.job, nil
}

func (f *fakeJobs) MarkRunning(_ context.Context, id string) error {
	f.running++
	f.job.Status = models.JobRunning
	return nil
}

func (f *fakeJobs) MarkDone(_ context.Context, id string) error {
	f.done++
	f.job.Status = models.JobDone
	f.job.Progress = 100
	return nil
}

func (f *fakeJobs) SetRowResult(_ context.Context, id string, idx int, res models.JobResult, progress int) error {
	if f.rowErr != nil {
		return f.rowErr
	}
	f.job.Results[idx] = res
	f.job.Progress = progress
	return nil
}

func (f *fakeJobs) Fail(_ context.Context, id, reason string) error {
	f.fails++
	f.reason = reason
	for i := range f.job.Results {
		if f.job.Results[i].Status == models.RowPending {
			f.job.Results[i].Status = models.RowError
			f.job.Results[i].Error = reason
		}
	}
	f.job.Status = models.JobDone
	f.job.Progress = 100
	return nil
}

type fakeTemplates struct {
	tpl *models.Template
	err error
}

func (f *fakeTemplates) Get(_ context.Context, id string) (*models.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tpl, nil
}

type fakeProcessed struct {
	seen   map[string]bool
	marked []string
}

func (f *fakeProcessed) IsProcessed(_ context.Context, id string) (bool, error) {
	return f.seen[id], nil
}

func (f *fakeProcessed) MarkProcessed(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) Provider() string { return "fake" }

func (f *fakeStorage) PutObject(_ context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	f.objects[in.ObjectKey] = data
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: int64(len(data))}, nil
}

func (f *fakeStorage) GetObject(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", 0, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), "image/png", int64(len(data)), nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (ports.SignedURLOutput, error) {
	return ports.SignedURLOutput{}, fmt.Errorf("signed urls not supported")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestProcessor(jobs *fakeJobs, templates *fakeTemplates, sp *fakeStorage) *Processor {
	return &Processor{
		sp:        sp,
		log:       testLogger(),
		jobs:      jobs,
		templates: templates,
		processed: &fakeProcessed{seen: map[string]bool{}},
		comp:      render.NewCompositor(sp),
	}
}

func pendingJob(id string, rows int) *models.JobRecord {
	job := &models.JobRecord{
		ID:         id,
		TemplateID: "tpl_1",
		Status:     models.JobPending,
		Mapping:    map[string]string{},
	}
	for i := 0; i < rows; i++ {
		job.Rows = append(job.Rows, map[string]string{"name": fmt.Sprintf("row %d", i)})
		job.Results = append(job.Results, models.JobResult{Row: i, Status: models.RowPending})
	}
	return job
}

func TestProcessJobRendersAllRows(t *testing.T) {
	sp := &fakeStorage{objects: map[string][]byte{
		"uploads/base.png": pngBytes(t, 40, 30),
	}}
	jobs := &fakeJobs{job: pendingJob("job_1", 2)}
	templates := &fakeTemplates{tpl: &models.Template{
		ID: "tpl_1", Name: "t", BaseImagePath: "uploads/base.png",
	}}
	p := newTestProcessor(jobs, templates, sp)

	if err := p.ProcessJob(context.Background(), "job_1"); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	if jobs.running != 1 || jobs.done != 1 || jobs.fails != 0 {
		t.Fatalf("running=%d done=%d fails=%d", jobs.running, jobs.done, jobs.fails)
	}
	for i, res := range jobs.job.Results {
		if res.Status != models.RowDone {
			t.Fatalf("row %d status = %q", i, res.Status)
		}
		want := fmt.Sprintf("/assets/renders/job_1/row_%d.jpg", i)
		if res.URL != want {
			t.Fatalf("row %d url = %q, want %q", i, res.URL, want)
		}
	}
	if _, ok := sp.objects["renders/job_1/row_1.jpg"]; !ok {
		t.Fatal("render object for row 1 not stored")
	}
}

func TestTemplateFetchFailureFailsJobTerminally(t *testing.T) {
	sp := &fakeStorage{objects: map[string][]byte{}}
	jobs := &fakeJobs{job: pendingJob("job_1", 2)}
	templates := &fakeTemplates{err: fmt.Errorf("db down")}
	p := newTestProcessor(jobs, templates, sp)

	if err := p.ProcessJob(context.Background(), "job_1"); err == nil {
		t.Fatal("expected error")
	}

	if jobs.fails != 1 {
		t.Fatalf("fails = %d, want 1", jobs.fails)
	}
	if jobs.job.Status != models.JobDone || jobs.job.Progress != 100 {
		t.Fatalf("job left status=%q progress=%d, poll chains would never stop",
			jobs.job.Status, jobs.job.Progress)
	}
	for i, res := range jobs.job.Results {
		if res.Status != models.RowError {
			t.Fatalf("row %d status = %q, want error", i, res.Status)
		}
		if !strings.Contains(res.Error, "db down") {
			t.Fatalf("row %d error = %q, missing cause", i, res.Error)
		}
	}
}

func TestRowResultStoreFailureFailsJobTerminally(t *testing.T) {
	sp := &fakeStorage{objects: map[string][]byte{
		"uploads/base.png": pngBytes(t, 40, 30),
	}}
	jobs := &fakeJobs{job: pendingJob("job_1", 3), rowErr: fmt.Errorf("insert refused")}
	templates := &fakeTemplates{tpl: &models.Template{
		ID: "tpl_1", Name: "t", BaseImagePath: "uploads/base.png",
	}}
	p := newTestProcessor(jobs, templates, sp)

	if err := p.ProcessJob(context.Background(), "job_1"); err == nil {
		t.Fatal("expected error")
	}
	if jobs.fails != 1 || jobs.done != 0 {
		t.Fatalf("fails=%d done=%d", jobs.fails, jobs.done)
	}
	if jobs.job.Status != models.JobDone {
		t.Fatalf("job status = %q, want done", jobs.job.Status)
	}
}

func TestAlreadyDoneJobIsSkipped(t *testing.T) {
	job := pendingJob("job_1", 1)
	job.Status = models.JobDone
	jobs := &fakeJobs{job: job}
	p := newTestProcessor(jobs, &fakeTemplates{}, &fakeStorage{objects: map[string][]byte{}})

	if err := p.ProcessJob(context.Background(), "job_1"); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if jobs.running != 0 || jobs.done != 0 || jobs.fails != 0 {
		t.Fatalf("done job touched: running=%d done=%d fails=%d", jobs.running, jobs.done, jobs.fails)
	}
}
