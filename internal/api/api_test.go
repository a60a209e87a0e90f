package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maScan/internal/config"
	"maScan/internal/model"
)

func newTestClient() *Client {
	return NewClient(WithRateLimit(0), WithTimeout(2*time.Second))
}

func eastmoneyKlines(n int) string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, fmt.Sprintf(`"2024-01-%02d,10.00,%.2f"`, i+1, 10+float64(i)))
	}
	return `{"rc":0,"data":{"code":"600000","klines":[` + strings.Join(rows, ",") + `]}}`
}

func TestNormalizeJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"jsonp object", `jQuery123({"a":[1,2]});`, `{"a":[1,2]}`},
		{"array before object", `cb([{"a":1},{"b":2}])`, `[{"a":1},{"b":2}]`},
		{"null", " null \n", `[]`},
		{"ok", "OK", `[]`},
		{"callback null", "var x=CallbackList(null);", `[]`},
		{"garbage", "<html>", "<html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(NormalizeJSON([]byte(tt.in))))
		})
	}
}

func TestEastmoney_ParseListing(t *testing.T) {
	e := &Eastmoney{}

	arr := `{"data":{"total":5321,"diff":[
		{"f12":"600000","f14":"浦发银行","f2":10.5,"f13":1,"f9":5.2,"f100":"银行"},
		{"f12":"000001","f14":"平安银行","f2":"-","f13":0,"f9":"-","f100":"银行"}]}}`
	got, total, err := e.ParseListing([]byte(arr))
	require.NoError(t, err)
	assert.Equal(t, 5321, total)
	require.Len(t, got, 2)
	assert.Equal(t, model.Symbol{Code: "600000", Name: "浦发银行", Sector: "银行", Market: model.MarketSH, LastPrice: 10.5, PE: 5.2}, got[0])
	assert.Zero(t, got[1].LastPrice)

	obj := `{"data":{"total":2,"diff":{"0":{"f12":"830799","f2":3.1,"f13":0},"1":{"f12":"300750","f2":200,"f13":0}}}}`
	got, _, err = e.ParseListing([]byte(obj))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, _, err = e.ParseListing([]byte(`{"rc":0,"data":null}`))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, _, err = e.ParseListing([]byte(`[]`))
	assert.Error(t, err)
}

func TestListing_PagesUntilEmpty(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pages = append(pages, q.Get("pn"))
		assert.Equal(t, "50", q.Get("pz"))
		assert.Equal(t, eastmoneyListFS, q.Get("fs"))
		assert.Equal(t, eastmoneyListFields, q.Get("fields"))
		assert.Equal(t, defaultReferer, r.Header.Get("Referer"))
		switch q.Get("pn") {
		case "1":
			fmt.Fprint(w, `{"data":{"total":3,"diff":[
				{"f12":"600000","f2":10.5,"f13":1},
				{"f12":"000001","f2":12.1,"f13":0},
				{"f12":"BK0001","f2":1,"f13":90}]}}`)
		case "2":
			fmt.Fprint(w, `{"data":{"total":3,"diff":[{"f12":"000002","f2":0,"f13":0}]}}`)
		default:
			t.Errorf("unexpected page %s", q.Get("pn"))
		}
	}))
	defer srv.Close()

	c := newTestClient()
	var got []Page
	for p, err := range c.Listing(context.Background(), &Eastmoney{ListURL: srv.URL}, 50) {
		require.NoError(t, err)
		got = append(got, p)
	}
	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, 3, got[0].Total)
	require.Len(t, got[0].Symbols, 2)
	assert.Equal(t, "600000", got[0].Symbols[0].Code)
	assert.Equal(t, "000001", got[0].Symbols[1].Code)
}

func TestListing_ParseFailureCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 500))
	}))
	defer srv.Close()

	c := newTestClient()
	var errs []error
	for _, err := range c.Listing(context.Background(), &Sina{ListURL: srv.URL}, 80) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var le *ListingError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, 1, le.Page)
	assert.Len(t, le.Body, listingBodyPreview)
	assert.Contains(t, le.Error(), "解析列表失败")
}

func TestListing_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var errs []error
	for _, err := range newTestClient().Listing(context.Background(), &Eastmoney{ListURL: srv.URL}, 10) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var se *StatusError
	require.True(t, errors.As(errs[0], &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Contains(t, errs[0].Error(), "拉取列表失败")
}

func TestSina_Listing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "hs_a", q.Get("node"))
		if q.Get("page") != "1" {
			fmt.Fprint(w, "null")
			return
		}
		fmt.Fprint(w, `[{"symbol":"sh600000","code":"600000","name":"浦发银行","trade":"10.50","per":5.1},
			{"symbol":"sz000001","code":"000001","name":"平安银行","trade":"12.00","per":"6.2"}]`)
	}))
	defer srv.Close()

	var syms []model.Symbol
	for p, err := range newTestClient().Listing(context.Background(), &Sina{ListURL: srv.URL}, 80) {
		require.NoError(t, err)
		assert.Zero(t, p.Total)
		syms = append(syms, p.Symbols...)
	}
	require.Len(t, syms, 2)
	assert.Equal(t, model.MarketSH, syms[0].Market)
	assert.Equal(t, 10.5, syms[0].LastPrice)
	assert.Equal(t, model.MarketSZ, syms[1].Market)
	assert.Equal(t, 6.2, syms[1].PE)
}

func TestFetchBars_Eastmoney(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1.600000", q.Get("secid"))
		assert.Equal(t, "40", q.Get("lmt"))
		assert.Equal(t, "101", q.Get("klt"))
		fmt.Fprint(w, eastmoneyKlines(8))
	}))
	defer srv.Close()

	bs, err := newTestClient().FetchBars(context.Background(), &Eastmoney{BarsURL: srv.URL}, "1.600000", 40, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, bs.Len())
	assert.Equal(t, "2024-01-01", bs.Dates[0])
	assert.Equal(t, 17.0, bs.Closes[7])
}

func TestFetchBars_TooFewBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, eastmoneyKlines(5))
	}))
	defer srv.Close()

	_, err := newTestClient().FetchBars(context.Background(), &Eastmoney{BarsURL: srv.URL}, "0.000001", 40, 0)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "0.000001", fe.SymbolID)
}

func TestFetchBars_Sina(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "sz000001", q.Get("symbol"))
		assert.Equal(t, "240", q.Get("scale"))
		var rows []string
		for i := 1; i <= 6; i++ {
			rows = append(rows, fmt.Sprintf(`{"day":"2024-02-%02d","open":"9.9","close":"%d.50"}`, i, 10+i))
		}
		fmt.Fprint(w, "["+strings.Join(rows, ",")+"]")
	}))
	defer srv.Close()

	bs, err := newTestClient().FetchBars(context.Background(), &Sina{BarsURL: srv.URL}, "0.000001", 40, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, bs.Len())
	assert.Equal(t, "2024-02-06", bs.Dates[5])
	assert.Equal(t, 16.5, bs.Closes[5])
}

func TestFetchBars_TonghuashunJSONP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/line/hs_600000/01/last.js", r.URL.Path)
		assert.Equal(t, tonghuashunReferer, r.Header.Get("Referer"))
		var rows []string
		for i := 1; i <= 7; i++ {
			rows = append(rows, fmt.Sprintf("202403%02d,10,11,9,%d.25,100000", i, 20+i))
		}
		fmt.Fprintf(w, `quotebridge_v6_line_hs_600000_01_last({"name":"浦发银行","data":"%s;"})`, strings.Join(rows, ";"))
	}))
	defer srv.Close()

	p := &Tonghuashun{BarsURL: srv.URL + "/v6/line"}
	bs, err := newTestClient().FetchBars(context.Background(), p, "1.600000", 40, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, bs.Len())
	assert.Equal(t, "2024-03-01", bs.Dates[0])
	assert.Equal(t, 27.25, bs.Closes[6])
}

func TestFetchBars_ContextTimeoutAborts(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := newTestClient().FetchBars(ctx, &Eastmoney{BarsURL: srv.URL}, "1.600000", 40, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchBars_TimeoutParamAborts(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient().FetchBars(context.Background(), &Eastmoney{BarsURL: srv.URL}, "1.600000", 40, 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchBars_TimeoutStartsAfterPacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"klines":["2024-05-01,1,1","2024-05-02,1,2","2024-05-03,1,3","2024-05-06,1,4","2024-05-07,1,5","2024-05-08,1,6"]}}`)
	}))
	defer srv.Close()

	c := NewClient(WithRateLimit(5), WithTimeout(2*time.Second))
	p := &Eastmoney{BarsURL: srv.URL}
	// 突发 5 个，之后每次要等约 200ms 才轮到；超时只算请求本身
	for i := 0; i < 8; i++ {
		bs, err := c.FetchBars(context.Background(), p, "1.600000", 40, 100*time.Millisecond)
		require.NoError(t, err, "request %d", i)
		assert.Equal(t, 6, bs.Len())
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default()
	for _, name := range []config.Provider{config.ProviderEastmoney, config.ProviderSina, config.ProviderTonghuashun} {
		cfg.Scan.Provider = name
		p, err := NewProvider(name, cfg.Endpoints())
		require.NoError(t, err)
		assert.Equal(t, string(name), p.Name())
	}
	_, err := NewProvider("yahoo", config.Endpoints{})
	assert.Error(t, err)
}
