package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// 开发调试工具：向本地服务重放签名过的 Stripe 风格回调，
// 用重复与乱序投递验证对账逻辑的幂等性
var (
	baseURL  = flag.String("url", "http://localhost:8080", "server base url")
	tenant   = flag.String("tenant", "", "tenant id appended to webhook url")
	secret   = flag.String("secret", "", "webhook signing secret (whsec_...)")
	payload  = flag.String("payload", "", "path to event payload json")
	repeat   = flag.Int("repeat", 3, "number of times to deliver the same event")
	parallel = flag.Bool("parallel", false, "deliver repeats concurrently")
)

func main() {
	flag.Parse()
	if *secret == "" || *payload == "" || *tenant == "" {
		flag.Usage()
		os.Exit(1)
	}

	body, err := os.ReadFile(*payload)
	if err != nil {
		fmt.Printf("读取载荷失败: %v\n", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("%s/webhook/stripe?tenant=%s", *baseURL, *tenant)

	deliver := func(i int) {
		status, resp, err := send(url, body)
		if err != nil {
			fmt.Printf("第 %d 次投递失败: %v\n", i+1, err)
			return
		}
		fmt.Printf("第 %d 次投递: HTTP %d %s\n", i+1, status, resp)
	}

	if *parallel {
		var wg sync.WaitGroup
		for i := 0; i < *repeat; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				deliver(i)
			}(i)
		}
		wg.Wait()
		return
	}

	for i := 0; i < *repeat; i++ {
		deliver(i)
	}
}

func send(url string, body []byte) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sign(body, *secret, time.Now()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

// sign 按 Stripe 的 t=...,v1=... 格式构造签名头
func sign(body []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
