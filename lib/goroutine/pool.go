package goroutine

import (
	"io"
	"net"
	"sync"

	"github.com/djylb/nps-guard/lib/logs"
	"github.com/panjf2000/ants/v2"
)

const bufSize = 32 * 1024

var copyBuff = sync.Pool{
	New: func() interface{} {
		b := make([]byte, bufSize)
		return &b
	},
}

type connGroup struct {
	src io.ReadWriteCloser
	dst io.ReadWriteCloser
	wg  *sync.WaitGroup
	n   *int64
}

func copyConnGroup(group interface{}) {
	cg, ok := group.(connGroup)
	if !ok {
		return
	}
	defer cg.wg.Done()
	defer func() {
		_ = cg.src.Close()
		_ = cg.dst.Close()
	}()
	buf := copyBuff.Get().(*[]byte)
	defer copyBuff.Put(buf)
	*cg.n, _ = io.CopyBuffer(cg.dst, cg.src, *buf)
}

// Conns an admitted client connection and its target
type Conns struct {
	client net.Conn
	target net.Conn
	wg     *sync.WaitGroup
	done   func(in, out int64)
}

func NewConns(client, target net.Conn, wg *sync.WaitGroup, done func(in, out int64)) Conns {
	return Conns{client: client, target: target, wg: wg, done: done}
}

func copyConns(group interface{}) {
	conns := group.(Conns)
	wg := new(sync.WaitGroup)
	wg.Add(2)
	var in, out int64
	if err := connCopyPool.Invoke(connGroup{src: conns.client, dst: conns.target, wg: wg, n: &in}); err != nil {
		logs.Warn("relay pool error %v", err)
		wg.Done()
		_ = conns.client.Close()
		_ = conns.target.Close()
	}
	if err := connCopyPool.Invoke(connGroup{src: conns.target, dst: conns.client, wg: wg, n: &out}); err != nil {
		logs.Warn("relay pool error %v", err)
		wg.Done()
		_ = conns.client.Close()
		_ = conns.target.Close()
	}
	wg.Wait()
	if conns.done != nil {
		conns.done(in, out)
	}
	if conns.wg != nil {
		conns.wg.Done()
	}
}

var connCopyPool, _ = ants.NewPoolWithFunc(200000, copyConnGroup, ants.WithNonblocking(false), ants.WithLogger(logs.PoolLogger{}))
var CopyConnsPool, _ = ants.NewPoolWithFunc(100000, copyConns, ants.WithNonblocking(false), ants.WithLogger(logs.PoolLogger{}))
