package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buzznfinds/internal/db"
)

var ErrImageNotFound = errors.New("no image found")

// ImageFinder 根据关键词查找可外链的封面图。
type ImageFinder interface {
	FindImage(ctx context.Context, query string) (*db.MainImage, error)
}

// UnsplashImageFinder 调用 Unsplash 搜索接口，取第一张结果。
type UnsplashImageFinder struct {
	http      httpDoer
	baseURL   string
	accessKey string
}

// NewUnsplashImageFinder 在 accessKey 为空时返回 nil，调用方据此跳过封面图查找。
func NewUnsplashImageFinder(accessKey string) *UnsplashImageFinder {
	accessKey = strings.TrimSpace(accessKey)
	if accessKey == "" {
		return nil
	}
	return &UnsplashImageFinder{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   "https://api.unsplash.com",
		accessKey: accessKey,
	}
}

func (f *UnsplashImageFinder) SetHTTPClient(client httpDoer) {
	f.http = client
}

func (f *UnsplashImageFinder) SetBaseURL(base string) {
	f.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

type unsplashSearchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Full    string `json:"full"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Links struct {
			HTML             string `json:"html"`
			DownloadLocation string `json:"download_location"`
		} `json:"links"`
	} `json:"results"`
}

func (f *UnsplashImageFinder) FindImage(ctx context.Context, query string) (*db.MainImage, error) {
	query = strings.TrimSpace(query)
	if f == nil || query == "" {
		return nil, ErrImageNotFound
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+f.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call unsplash: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read unsplash response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unsplash returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var search unsplashSearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("decode unsplash response: %w", err)
	}
	if len(search.Results) == 0 {
		return nil, ErrImageNotFound
	}

	photo := search.Results[0]
	imageURL := photo.URLs.Regular
	if imageURL == "" {
		imageURL = photo.URLs.Full
	}
	if imageURL == "" {
		return nil, ErrImageNotFound
	}

	f.trackDownload(ctx, photo.Links.DownloadLocation)

	return &db.MainImage{
		URL:             imageURL,
		Attribution:     fmt.Sprintf("Photo by %s on Unsplash", photo.User.Name),
		AttributionLink: photo.Links.HTML,
	}, nil
}

// trackDownload 通知 Unsplash 图片被使用，失败只记录不影响结果。
func (f *UnsplashImageFinder) trackDownload(ctx context.Context, location string) {
	if location == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Client-ID "+f.accessKey)
	resp, err := f.http.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
