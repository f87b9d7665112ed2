// Package benchmark drives concurrent load against the alert API and summarises the outcome.
package benchmark

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// LoadTest fires Requests calls with at most Concurrency in flight.
type LoadTest struct {
	Concurrency int
	Requests    int
	Client      *resty.Client
}

// Result of one load run.
type Result struct {
	Method         string        `json:"method"`
	Path           string        `json:"path"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	MaxTime        time.Duration `json:"max_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	Errors         []string      `json:"errors"`
}

type sample struct {
	duration time.Duration
	status   int
	err      error
}

// NewLoadTest returns a load test against baseURL authenticated with token.
func NewLoadTest(baseURL, token string, concurrency, requests int) *LoadTest {
	c := resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &LoadTest{Concurrency: concurrency, Requests: requests, Client: c}
}

// Run issues the same request Requests times. body may be nil.
func (l *LoadTest) Run(method, path string, body interface{}) *Result {
	samples := make(chan sample, l.Requests)
	limiter := make(chan struct{}, max(l.Concurrency, 1))
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < l.Requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			req := l.Client.R()
			if body != nil {
				req.SetHeader("Content-Type", "application/json").SetBody(body)
			}
			t0 := time.Now()
			resp, err := req.Execute(method, path)
			if err != nil {
				samples <- sample{err: err}
				return
			}
			samples <- sample{duration: time.Since(t0), status: resp.StatusCode()}
		}()
	}
	wg.Wait()
	close(samples)

	res := &Result{
		Method:        method,
		Path:          path,
		Concurrency:   l.Concurrency,
		TotalRequests: l.Requests,
		StatusCodes:   make(map[int]int),
	}
	var total time.Duration
	for s := range samples {
		if s.err != nil {
			res.FailureCount++
			res.Errors = append(res.Errors, s.err.Error())
			continue
		}
		total += s.duration
		res.MaxTime = max(res.MaxTime, s.duration)
		res.StatusCodes[s.status]++
		if s.status >= 200 && s.status < 300 {
			res.SuccessCount++
		} else {
			res.FailureCount++
		}
	}
	res.TotalTime = time.Since(start)
	if n := res.SuccessCount + res.FailureCount; n > 0 {
		res.AverageTime = total / time.Duration(n)
	}
	if secs := res.TotalTime.Seconds(); secs > 0 {
		res.RequestsPerSec = float64(l.Requests) / secs
	}
	return res
}

// Print writes a human summary.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "压测结果: %s %s\n", r.Method, r.Path)
	fmt.Fprintf(w, "并发数: %d, 总请求数: %d\n", r.Concurrency, r.TotalRequests)
	fmt.Fprintf(w, "成功: %d, 失败: %d\n", r.SuccessCount, r.FailureCount)
	fmt.Fprintf(w, "总耗时: %s, 平均: %s, 最大: %s, 每秒请求数: %.2f\n", r.TotalTime, r.AverageTime, r.MaxTime, r.RequestsPerSec)
	for code, count := range r.StatusCodes {
		fmt.Fprintf(w, "  %d: %d\n", code, count)
	}
	for i, err := range r.Errors {
		if i >= 5 {
			fmt.Fprintf(w, "  ... 还有 %d 个错误\n", len(r.Errors)-5)
			break
		}
		fmt.Fprintf(w, "  %s\n", err)
	}
}
