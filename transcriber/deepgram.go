package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"minute/encoder"
	"minute/wav"
)

const defaultDeepgramURL = "https://api.deepgram.com/v1/listen"

// Deepgram calls the prerecorded listen API with diarization and smart
// formatting enabled, one request per session.
type Deepgram struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	flac     bool
	retry    RetryPolicy
	client   *http.Client
}

type DeepgramOption func(*Deepgram)

// WithModel overrides the transcription model.
func WithModel(model string) DeepgramOption {
	return func(d *Deepgram) { d.model = model }
}

// WithLanguage sets the spoken language hint.
func WithLanguage(lang string) DeepgramOption {
	return func(d *Deepgram) { d.language = lang }
}

// WithFLACUpload compresses the WAV payload to FLAC before upload. Lossless,
// roughly halves the request body for speech.
func WithFLACUpload(on bool) DeepgramOption {
	return func(d *Deepgram) { d.flac = on }
}

// WithRetryPolicy overrides the backoff schedule.
func WithRetryPolicy(p RetryPolicy) DeepgramOption {
	return func(d *Deepgram) { d.retry = p }
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func WithBaseURL(u string) DeepgramOption {
	return func(d *Deepgram) { d.baseURL = u }
}

// WithTimeout bounds each individual request attempt.
func WithTimeout(t time.Duration) DeepgramOption {
	return func(d *Deepgram) { d.client.Timeout = t }
}

func NewDeepgram(apiKey string, opts ...DeepgramOption) *Deepgram {
	d := &Deepgram{
		apiKey:  apiKey,
		baseURL: defaultDeepgramURL,
		model:   "nova-2",
		retry:   DefaultRetryPolicy(),
		client: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Deepgram) Name() string { return "deepgram" }

type deepgramResponse struct {
	Results struct {
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Speaker    int     `json:"speaker"`
			Transcript string  `json:"transcript"`
		} `json:"utterances"`
	} `json:"results"`
}

// Transcribe uploads the audio file and returns its diarized utterances in
// non-decreasing start order. Transient failures are retried per the policy;
// auth and bad-audio responses fail immediately.
func (d *Deepgram) Transcribe(ctx context.Context, audioPath string) ([]Utterance, error) {
	body, contentType, err := d.payload(audioPath)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("model", d.model)
	q.Set("diarize", "true")
	q.Set("smart_format", "true")
	q.Set("utterances", "true")
	if d.language != "" {
		q.Set("language", d.language)
	}
	reqURL := d.baseURL + "?" + q.Encode()

	respBody, err := d.retry.Do(ctx, func() ([]byte, error) {
		return d.attempt(ctx, reqURL, contentType, body)
	})
	if err != nil {
		return nil, err
	}

	var dgResp deepgramResponse
	if err := json.Unmarshal(respBody, &dgResp); err != nil {
		return nil, &TranscriptionError{Attempts: 1, Err: fmt.Errorf("parsing response: %w", err)}
	}

	utterances := make([]Utterance, 0, len(dgResp.Results.Utterances))
	for _, u := range dgResp.Results.Utterances {
		if u.Transcript == "" {
			continue
		}
		utterances = append(utterances, Utterance{
			Speaker: fmt.Sprintf("Speaker %d", u.Speaker),
			Start:   u.Start,
			End:     u.End,
			Text:    u.Transcript,
		})
	}
	// Ordering is authoritative for rendering; enforce it even if the
	// service misbehaves.
	sort.SliceStable(utterances, func(i, j int) bool {
		return utterances[i].Start < utterances[j].Start
	})
	return utterances, nil
}

func (d *Deepgram) payload(audioPath string) ([]byte, string, error) {
	if d.flac {
		pcm, info, err := wav.ReadPCM(audioPath)
		if err != nil {
			return nil, "", &InputError{Err: err}
		}
		flacData, err := encoder.EncodeFLAC(pcm, info.SampleRate, info.Channels)
		if err != nil {
			return nil, "", &InputError{Err: err}
		}
		return flacData, "audio/flac", nil
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, "", &InputError{Err: err}
	}
	return data, "audio/wav", nil
}

// attempt performs one request. It maps the HTTP status to the error
// taxonomy; the retry policy decides what happens next.
func (d *Deepgram) attempt(ctx context.Context, reqURL, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &ConfigurationError{Err: apiErr(resp.StatusCode, respBody)}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnsupportedMediaType ||
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &InputError{Err: apiErr(resp.StatusCode, respBody)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &transientError{err: apiErr(resp.StatusCode, respBody)}
	default:
		return nil, apiErr(resp.StatusCode, respBody)
	}
}

func apiErr(status int, body []byte) error {
	const maxBody = 200
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return fmt.Errorf("deepgram API error %d: %s", status, body)
}
