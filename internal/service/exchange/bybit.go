package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	pkghttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

const defaultBybitURL = "https://api.bybit.com"

// Bybit implements ExchangeFetcher against the Bybit v5 spot REST API.
type Bybit struct {
	logger      *logger.Logger
	client      *pkghttp.Client
	baseURL     string
	candleLimit string
}

func NewBybit(lgr *logger.Logger, client *pkghttp.Client, baseURL string, candleLimit int) *Bybit {
	if baseURL == "" {
		baseURL = defaultBybitURL
	}
	if candleLimit <= 0 {
		candleLimit = defaultCandleLimit
	}
	return &Bybit{
		logger:      lgr,
		client:      client,
		baseURL:     baseURL,
		candleLimit: strconv.Itoa(candleLimit),
	}
}

var _ repository.ExchangeFetcher = (*Bybit)(nil)

func bybitInterval(tf repository.Timeframe) string {
	switch tf {
	case repository.TF1h:
		return "60"
	case repository.TF4h:
		return "240"
	default:
		return strconv.Itoa(tf.Minutes())
	}
}

type bybitResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

type bybitKlineResult struct {
	List [][]string `json:"list"`
}

// Candles fetches v5 klines. Bybit returns newest first; output is reversed
// to oldest-first to match the assembler's expectation.
func (b *Bybit) Candles(ctx context.Context, asset, quote string, tf repository.Timeframe) ([]models.Candle, error) {
	var raw bybitResponse[bybitKlineResult]
	err := getJSON(ctx, b.client, b.baseURL+"/v5/market/kline", map[string][]string{
		"category": {"spot"},
		"symbol":   {asset + quote},
		"interval": {bybitInterval(tf)},
		"limit":    {b.candleLimit},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("bybit kline %s%s %s: %w", asset, quote, tf, err)
	}
	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit kline %s%s: retCode %d: %s", asset, quote, raw.RetCode, raw.RetMsg)
	}

	candles := make([]models.Candle, 0, len(raw.Result.List))
	for i := len(raw.Result.List) - 1; i >= 0; i-- {
		k := raw.Result.List[i]
		if len(k) < 6 {
			continue
		}
		candle, err := parseBybitKline(k, tf)
		if err != nil {
			return nil, fmt.Errorf("bybit kline parse %s%s: %w", asset, quote, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseBybitKline(k []string, tf repository.Timeframe) (models.Candle, error) {
	startMs, err := strconv.ParseInt(k[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse start time: %w", err)
	}
	high, err := strconv.ParseFloat(k[2], 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k[3], 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k[4], 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseFloat(k[5], 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse volume: %w", err)
	}

	openTime := time.UnixMilli(startMs)
	return models.Candle{
		OpenTime:  openTime,
		CloseTime: openTime.Add(tf.Duration()),
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

type bybitOrderBookResult struct {
	Bids [][2]string `json:"b"`
	Asks [][2]string `json:"a"`
}

// OrderBook fetches the top 20 levels each side.
func (b *Bybit) OrderBook(ctx context.Context, asset, quote string) (*models.OrderBook, error) {
	var raw bybitResponse[bybitOrderBookResult]
	err := getJSON(ctx, b.client, b.baseURL+"/v5/market/orderbook", map[string][]string{
		"category": {"spot"},
		"symbol":   {asset + quote},
		"limit":    {"20"},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("bybit orderbook %s%s: %w", asset, quote, err)
	}
	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit orderbook %s%s: retCode %d: %s", asset, quote, raw.RetCode, raw.RetMsg)
	}

	book := &models.OrderBook{}
	for _, lvl := range raw.Result.Bids {
		price, size, err := parseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("bybit bid parse: %w", err)
		}
		book.Bids = append(book.Bids, models.PriceLevel{Price: price, Size: size})
	}
	for _, lvl := range raw.Result.Asks {
		price, size, err := parseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("bybit ask parse: %w", err)
		}
		book.Asks = append(book.Asks, models.PriceLevel{Price: price, Size: size})
	}
	return book, nil
}

type bybitTickerResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

// LatestPrices fetches last trade prices for all spot symbols in one call.
func (b *Bybit) LatestPrices(ctx context.Context) (map[string]float64, error) {
	var raw bybitResponse[bybitTickerResult]
	err := getJSON(ctx, b.client, b.baseURL+"/v5/market/tickers", map[string][]string{
		"category": {"spot"},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}
	if raw.RetCode != 0 {
		return nil, fmt.Errorf("bybit tickers: retCode %d: %s", raw.RetCode, raw.RetMsg)
	}

	prices := make(map[string]float64, len(raw.Result.List))
	for _, t := range raw.Result.List {
		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			continue
		}
		prices[t.Symbol] = price
	}
	return prices, nil
}
