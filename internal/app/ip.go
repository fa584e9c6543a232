package app

import (
	"context"
	"net"
	"strings"

	"github.com/klasvik/prewarn/internal/domain/model"
	"github.com/klasvik/prewarn/pkg/logger"
)

// announceIP queues the machine's local IP address, octet by octet in
// English, so a headless box can be reached without a screen. Connecting
// a UDP socket sends no packets; it only selects the outbound interface.
func (p *Pipeline) announceIP(ctx context.Context) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		p.log.Warn(ctx, "could not determine local IP address", logger.Error(err))
		return
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return
	}
	ip := addr.IP.String()
	p.log.Info(ctx, "announcing local IP address", logger.String("ip", ip))

	for _, octet := range strings.Split(ip, ".") {
		if !p.announceQueue.Enqueue(ctx, model.Announcement{Language: "en", SoundKey: octet}) {
			p.log.Warn(ctx, "announcement queue full, dropping IP octet", logger.String("octet", octet))
		}
	}
}
