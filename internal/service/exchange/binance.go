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

const (
	defaultBinanceURL  = "https://api.binance.com"
	defaultCandleLimit = 50
)

// Binance implements ExchangeFetcher against the Binance spot REST API.
type Binance struct {
	logger      *logger.Logger
	client      *pkghttp.Client
	baseURL     string
	candleLimit string
}

func NewBinance(lgr *logger.Logger, client *pkghttp.Client, baseURL string, candleLimit int) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceURL
	}
	if candleLimit <= 0 {
		candleLimit = defaultCandleLimit
	}
	return &Binance{
		logger:      lgr,
		client:      client,
		baseURL:     baseURL,
		candleLimit: strconv.Itoa(candleLimit),
	}
}

var _ repository.ExchangeFetcher = (*Binance)(nil)

// Candles fetches klines oldest-first. Binance returns each kline as a
// mixed-type array: [openTime, open, high, low, close, volume, closeTime, ...].
func (b *Binance) Candles(ctx context.Context, asset, quote string, tf repository.Timeframe) ([]models.Candle, error) {
	var raw [][]interface{}
	err := getJSON(ctx, b.client, b.baseURL+"/api/v3/klines", map[string][]string{
		"symbol":   {asset + quote},
		"interval": {string(tf)},
		"limit":    {b.candleLimit},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s%s %s: %w", asset, quote, tf, err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		candle, err := parseBinanceKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance kline parse %s%s: %w", asset, quote, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseBinanceKline(k []interface{}) (models.Candle, error) {
	openMs, ok := k[0].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("open time not numeric: %v", k[0])
	}
	closeMs, ok := k[6].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("close time not numeric: %v", k[6])
	}

	high, err := floatField(k[2], "high")
	if err != nil {
		return models.Candle{}, err
	}
	low, err := floatField(k[3], "low")
	if err != nil {
		return models.Candle{}, err
	}
	closePrice, err := floatField(k[4], "close")
	if err != nil {
		return models.Candle{}, err
	}
	volume, err := floatField(k[5], "volume")
	if err != nil {
		return models.Candle{}, err
	}

	return models.Candle{
		OpenTime:  time.UnixMilli(int64(openMs)),
		CloseTime: time.UnixMilli(int64(closeMs)),
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func floatField(v interface{}, name string) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%s not a string: %v", name, v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return f, nil
}

type binanceDepth struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// OrderBook fetches the top 20 levels each side.
func (b *Binance) OrderBook(ctx context.Context, asset, quote string) (*models.OrderBook, error) {
	var raw binanceDepth
	err := getJSON(ctx, b.client, b.baseURL+"/api/v3/depth", map[string][]string{
		"symbol": {asset + quote},
		"limit":  {"20"},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("binance depth %s%s: %w", asset, quote, err)
	}

	book := &models.OrderBook{}
	for _, lvl := range raw.Bids {
		price, size, err := parseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("binance bid parse: %w", err)
		}
		book.Bids = append(book.Bids, models.PriceLevel{Price: price, Size: size})
	}
	for _, lvl := range raw.Asks {
		price, size, err := parseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("binance ask parse: %w", err)
		}
		book.Asks = append(book.Asks, models.PriceLevel{Price: price, Size: size})
	}
	return book, nil
}

func parseLevel(lvl [2]string) (float64, float64, error) {
	price, err := strconv.ParseFloat(lvl[0], 64)
	if err != nil {
		return 0, 0, err
	}
	size, err := strconv.ParseFloat(lvl[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return price, size, nil
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// LatestPrices fetches last trade prices for every listed symbol in one call.
func (b *Binance) LatestPrices(ctx context.Context) (map[string]float64, error) {
	var raw []binanceTicker
	if err := getJSON(ctx, b.client, b.baseURL+"/api/v3/ticker/price", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance ticker prices: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for _, t := range raw {
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			continue
		}
		prices[t.Symbol] = price
	}
	return prices, nil
}
